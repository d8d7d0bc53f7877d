package models

import "time"

// BillingAccount is the per-patient (optionally per-admission) ledger of
// billable line items. Created lazily on the first billable event.
type BillingAccount struct {
	ID            int64     `json:"id" db:"id"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	PatientID     int64     `json:"patient_id" db:"patient_id"`
	AdmissionID   *int64    `json:"admission_id" db:"admission_id"`
	CreatedBy     int64     `json:"created_by" db:"created_by"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	AccountStatusOpen = "open"
	AccountStatusPaid = "paid"
)

// Source types a billing item can reference. Room stays come in two
// flavors depending on which occupancy table recorded them.
const (
	SourceAppointment  = "appointment"
	SourcePrescription = "prescription"
	SourceLabOrder     = "lab_order"
	SourceRoom         = "room"
	SourceRoomLegacy   = "room_legacy"
)

// BillingItem is one line on a billing account. Uniqueness of
// (billing_id, source_type, source_id) is enforced procedurally by the
// service, not by a database constraint.
type BillingItem struct {
	ID             int64   `json:"id" db:"id"`
	BillingID      int64   `json:"billing_id" db:"billing_id"`
	SourceType     string  `json:"source_type" db:"source_type"`
	SourceID       int64   `json:"source_id" db:"source_id"`
	Description    string  `json:"description" db:"description"`
	UnitPrice      float64 `json:"unit_price" db:"unit_price"`
	Quantity       int     `json:"quantity" db:"quantity"`
	LineTotal      float64 `json:"line_total" db:"line_total"`
	DiscountRate   float64 `json:"discount_rate" db:"discount_rate"`
	DiscountAmount float64 `json:"discount_amount" db:"discount_amount"`
	FinalAmount    float64 `json:"final_amount" db:"final_amount"`
}

// AddItemRequest is the body of POST /api/finance/billing/items. When
// BillingID is zero the account is resolved (or created) from PatientID
// and AdmissionID.
type AddItemRequest struct {
	BillingID   int64   `json:"billing_id"`
	PatientID   int64   `json:"patient_id"`
	AdmissionID *int64  `json:"admission_id"`
	SourceType  string  `json:"source_type"`
	SourceID    int64   `json:"source_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

// ItemResult reports the outcome of AddItem. Existing is true when the
// call was a duplicate no-op and ItemID refers to the already present row.
type ItemResult struct {
	ItemID         int64   `json:"item_id"`
	Existing       bool    `json:"existing"`
	LineTotal      float64 `json:"line_total"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}
