package model

import "time"

// Contract сводная запись о сформированном договоре
type Contract struct {
	ID        int64     `json:"id"`
	BuyerName string    `json:"buyer_name"`
	Inn       string    `json:"inn"`
	Phone     string    `json:"phone"`
	TotalSum  float64   `json:"total_sum"` // итог в сумах, с учётом надбавки
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}
