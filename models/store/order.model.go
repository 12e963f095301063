package store

import (
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// PaymentStatus defines the payment lifecycle of an order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Order is a course purchase record: the single source of truth for whether
// a payment occurred. Zero-amount courses are created directly PAID with a
// generated FREE- transaction id.
type Order struct {
	gorm.Model
	UserID          uint          `json:"user_id" gorm:"index;not null"`
	CourseID        uint          `json:"course_id" gorm:"index;not null"`
	Amount          float64       `json:"amount" gorm:"not null"`
	PaymentMethod   string        `json:"payment_method" gorm:"type:varchar(50)"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'PENDING';index"`
	TransactionID   string        `json:"transaction_id" gorm:"type:varchar(100);uniqueIndex"`
	PaymentProofURL string        `json:"payment_proof_url"`
	IsDeleted       bool          `gorm:"default:false"`

	Course courseModels.Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
