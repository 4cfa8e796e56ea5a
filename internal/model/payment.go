package model

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusDeclined PaymentStatus = "declined"
)

type PaymentMethod string

const (
	PaymentMethodTMoney PaymentMethod = "tmoney"
	PaymentMethodFlooz  PaymentMethod = "flooz"
	PaymentMethodCard   PaymentMethod = "card"
)

// Payment tracks a checkout against a reservation. Approval and decline
// arrive through the gateway webhook, keyed by ExternalTransactionID,
// and are applied at most once.
type Payment struct {
	Base
	ReservationID         uuid.UUID     `json:"reservation_id" db:"reservation_id"`
	Amount                int64         `json:"amount" db:"amount"`
	Method                PaymentMethod `json:"payment_method" db:"payment_method"`
	Status                PaymentStatus `json:"status" db:"status"`
	Phone                 string        `json:"phone" db:"phone"`
	ExternalTransactionID string        `json:"external_transaction_id" db:"external_transaction_id"`
}

type InitializePaymentRequest struct {
	ReservationID uuid.UUID     `json:"reservation_id" binding:"required"`
	Amount        int64         `json:"amount" binding:"required,min=1"`
	Method        PaymentMethod `json:"payment_method" binding:"required,oneof=tmoney flooz card"`
	Phone         string        `json:"phone" binding:"required,togophone"`
}

// PaymentWebhookRequest is the gateway callback payload. Authenticity of
// the callback is verified upstream of this service.
type PaymentWebhookRequest struct {
	TransactionID string        `json:"transaction_id" binding:"required"`
	Status        PaymentStatus `json:"status" binding:"required,oneof=approved declined"`
}

// CheckoutReference is returned from payment initialization
type CheckoutReference struct {
	Payment       *Payment `json:"payment"`
	TransactionID string   `json:"transaction_id"`
}
