package payment

import (
	"encoding/json"
	"time"
)

type Record struct {
	OrderID         string          `json:"orderId"`
	Status          Status          `json:"status"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	GatewayResponse json.RawMessage `json:"gatewayResponse,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
