package services

import (
	"database/sql"
)

// GetRecentAccounts lists billing accounts with patient name and item
// totals, newest first. If filterStatus is non-nil only accounts with that
// status are returned.
func (s *FinancialService) GetRecentAccounts(filterStatus *string) ([]map[string]interface{}, error) {
	query := `
		SELECT b.id, b.account_number, p.name, b.status, b.created_at,
			COUNT(i.id), COALESCE(SUM(i.final_amount), 0)
		FROM billing_accounts b
		JOIN patients p ON b.patient_id = p.id
		LEFT JOIN billing_items i ON i.billing_id = b.id
	`
	if filterStatus != nil {
		query += " WHERE b.status = ?"
	}
	query += " GROUP BY b.id, b.account_number, p.name, b.status, b.created_at ORDER BY b.created_at DESC"

	var rows *sql.Rows
	var err error
	if filterStatus != nil {
		rows, err = s.DB.Query(query, *filterStatus)
	} else {
		rows, err = s.DB.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		var id, itemCount int64
		var accountNumber, patientName, status string
		var createdAt sql.NullTime
		var total float64

		if err := rows.Scan(&id, &accountNumber, &patientName, &status, &createdAt, &itemCount, &total); err != nil {
			return nil, err
		}

		record := map[string]interface{}{
			"id_billing":     id,
			"account_number": accountNumber,
			"patient_name":   patientName,
			"status":         status,
			"item_count":     itemCount,
			"total":          total,
			"created_at":     nil,
		}
		if createdAt.Valid {
			record["created_at"] = createdAt.Time
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// GetAccountDetail returns one account with all of its line items.
func (s *FinancialService) GetAccountDetail(billingID int64) (map[string]interface{}, error) {
	var accountNumber, patientName, status string
	var patientID int64
	var admissionID sql.NullInt64

	err := s.DB.QueryRow(`
		SELECT b.account_number, b.patient_id, p.name, b.admission_id, b.status
		FROM billing_accounts b
		JOIN patients p ON b.patient_id = p.id
		WHERE b.id = ?
	`, billingID).Scan(&accountNumber, &patientID, &patientName, &admissionID, &status)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(`
		SELECT id, source_type, source_id, description, unit_price, quantity,
			line_total, discount_amount, final_amount
		FROM billing_items WHERE billing_id = ? ORDER BY id
	`, billingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []map[string]interface{}
	var grandTotal float64
	for rows.Next() {
		var id, sourceID int64
		var sourceType, description string
		var unitPrice, lineTotal, discountAmount, finalAmount float64
		var quantity int

		if err := rows.Scan(&id, &sourceType, &sourceID, &description, &unitPrice,
			&quantity, &lineTotal, &discountAmount, &finalAmount); err != nil {
			return nil, err
		}
		grandTotal += finalAmount
		items = append(items, map[string]interface{}{
			"item_id":         id,
			"source_type":     sourceType,
			"source_id":       sourceID,
			"description":     description,
			"unit_price":      unitPrice,
			"quantity":        quantity,
			"line_total":      lineTotal,
			"discount_amount": discountAmount,
			"final_amount":    finalAmount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	detail := map[string]interface{}{
		"id_billing":     billingID,
		"account_number": accountNumber,
		"patient_id":     patientID,
		"patient_name":   patientName,
		"admission_id":   nil,
		"status":         status,
		"items":          items,
		"grand_total":    grandTotal,
	}
	if admissionID.Valid {
		detail["admission_id"] = admissionID.Int64
	}
	return detail, nil
}
