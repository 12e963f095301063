package store

import (
	"time"

	"gorm.io/gorm"
)

// DigitalOrder is a digital product purchase covering one or more products.
// Its download tokens are created exactly once, when the order becomes PAID.
type DigitalOrder struct {
	gorm.Model
	UserID        uint          `json:"user_id" gorm:"index;not null"`
	TotalAmount   float64       `json:"total_amount" gorm:"not null"`
	PaymentMethod string        `json:"payment_method" gorm:"type:varchar(50)"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'PENDING';index"`
	TransactionID string        `json:"transaction_id" gorm:"type:varchar(100);uniqueIndex"`
	IsDeleted     bool          `gorm:"default:false"`

	Items  []DigitalOrderItem `json:"items" gorm:"foreignKey:DigitalOrderID"`
	Tokens []DownloadToken    `json:"tokens,omitempty" gorm:"foreignKey:DigitalOrderID"`
}

// DigitalOrderItem snapshots one purchased product at checkout time so later
// catalog edits cannot change what was sold.
type DigitalOrderItem struct {
	gorm.Model
	DigitalOrderID uint    `json:"digital_order_id" gorm:"index;not null"`
	ProductID      uint    `json:"product_id" gorm:"index;not null"`
	Title          string  `json:"title"`
	UnitPrice      float64 `json:"unit_price"`
}

// DownloadToken is the entitlement to fetch a purchased file: an opaque
// credential bounding how many times, and until when, the file may be
// downloaded. Owned by exactly one DigitalOrder.
type DownloadToken struct {
	gorm.Model
	DigitalOrderID uint      `json:"digital_order_id" gorm:"index;not null"`
	ProductID      uint      `json:"product_id" gorm:"index;not null"`
	Token          string    `json:"token" gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null"`
	MaxDownloads   int       `json:"max_downloads" gorm:"default:5"`
	DownloadsUsed  int       `json:"downloads_used" gorm:"default:0"`
}

// Remaining returns the unused download quota, never negative.
func (t *DownloadToken) Remaining() int {
	remaining := t.MaxDownloads - t.DownloadsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the token is past its expiry.
func (t *DownloadToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
