package ws

// The hub keeps every connected client and fans room-occupancy events out
// to all of them. Controllers push JSON payloads into Broadcast after an
// assignment, transfer or discharge commits.

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var HubInstance = NewHub()

func init() {
	go HubInstance.Run()
}

// Client represents one WebSocket connection.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub manages all connected clients.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
			log.Debug().Msg("ws client registered")
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				log.Debug().Msg("ws client unregistered")
			}
		case message := <-h.Broadcast:
			for client := range h.Clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.Clients, client)
				}
			}
		}
	}
}

// BroadcastRoomStatus publishes an occupancy change to every client.
// Marshal errors are logged and dropped; the feed is best effort.
func BroadcastRoomStatus(roomID int64, status string, patientID interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"room_id":    roomID,
		"status":     status,
		"patient_id": patientID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal room status broadcast")
		return
	}
	HubInstance.Broadcast <- payload
}
