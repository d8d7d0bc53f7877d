package main

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/config"
	financeControllers "github.com/c14220110/hospital-backend/internal/finance/controllers"
	financeRoutes "github.com/c14220110/hospital-backend/internal/finance/routes"
	financeServices "github.com/c14220110/hospital-backend/internal/finance/services"
	inpatientControllers "github.com/c14220110/hospital-backend/internal/inpatient/controllers"
	inpatientRoutes "github.com/c14220110/hospital-backend/internal/inpatient/routes"
	inpatientServices "github.com/c14220110/hospital-backend/internal/inpatient/services"
	staffControllers "github.com/c14220110/hospital-backend/internal/staff/controllers"
	staffRoutes "github.com/c14220110/hospital-backend/internal/staff/routes"
	staffServices "github.com/c14220110/hospital-backend/internal/staff/services"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
	"github.com/c14220110/hospital-backend/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.LoadConfig()
	db := mariadb.Connect()

	// Optional tables and columns are probed once; the services never touch
	// information_schema after startup.
	caps, err := inpatientServices.ResolveSchemaCapabilities(db, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve schema capabilities")
	}

	roomService := inpatientServices.NewRoomService(db)
	occupancyService := inpatientServices.NewOccupancyService(db, caps)
	financialService := financeServices.NewFinancialService(db)
	staffService := staffServices.NewStaffService(db)

	roomController := inpatientControllers.NewRoomController(roomService, occupancyService, financialService)
	financialController := financeControllers.NewFinancialController(financialService)
	staffController := staffControllers.NewStaffController(staffService)

	e := echo.New()
	e.HideBanner = true

	staffRoutes.RegisterStaffRoutes(e, staffController)
	inpatientRoutes.RegisterRoomRoutes(e, roomController)
	financeRoutes.RegisterFinancialRoutes(e, financialController)
	e.GET("/ws", ws.ServeWS(ws.HubInstance))

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
