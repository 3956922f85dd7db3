package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Payment is one external STK push attempt. CheckoutRequestID is the
// correlation key before any receipt exists; MpesaReceiptNumber is set only on
// confirmed payments and is unique once set. Both uniqueness constraints are
// the idempotency guard for duplicate callback deliveries.
type Payment struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	MerchantRequestID  string          `gorm:"not null" json:"merchant_request_id"`
	CheckoutRequestID  string          `gorm:"not null;uniqueIndex" json:"checkout_request_id"`
	MpesaReceiptNumber *string         `gorm:"uniqueIndex" json:"mpesa_receipt_number,omitempty"`
	AccountReference   string          `json:"account_reference,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ResultCode         int             `gorm:"not null" json:"result_code"`
	ResultDesc         string          `json:"result_desc,omitempty"`
	Status             string          `gorm:"not null;default:pending" json:"status"`
	MemberID           *snowflake.ID   `gorm:"index" json:"member_id,omitempty"`
	RawCallback        datatypes.JSON  `json:"raw_callback,omitempty"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
