package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	storeModels "lms/models/store"

	"gorm.io/gorm"
)

// Download token defaults applied at grant time.
const (
	TokenValidityDays   = 7
	DefaultMaxDownloads = 5
)

// Granter converts a PAID order into durable entitlements: an enrollment
// for course orders, download tokens for digital orders. Every grant is
// idempotent; re-driving a fully granted order is a no-op. "Run again,
// check first" is the only recovery strategy it needs.
type Granter struct {
	db   *gorm.DB
	jobs *Jobs
}

func NewGranter(db *gorm.DB, jobs *Jobs) *Granter {
	return &Granter{db: db, jobs: jobs}
}

// OnCourseOrderPaid ensures the enrollment for a paid course order exists.
// Runs inside the caller's transaction when tx is the transaction handle.
// Returns whether this call created the grant.
func (g *Granter) OnCourseOrderPaid(tx *gorm.DB, order *storeModels.Order) (bool, error) {
	var existing courseModels.Enrollment
	err := tx.Where("user_id = ? AND course_id = ? AND is_deleted = ?", order.UserID, order.CourseID, false).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	enrollment := courseModels.Enrollment{
		UserID:          order.UserID,
		CourseID:        order.CourseID,
		Status:          "ENROLLED",
		ProgressPercent: 0,
		Completed:       false,
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		// Unique (user, course) index is the backstop under concurrency:
		// a racing grant already created the row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OnDigitalOrderPaid mints one download token per line item for a paid
// digital order. A no-op if the order already has its tokens.
func (g *Granter) OnDigitalOrderPaid(tx *gorm.DB, order *storeModels.DigitalOrder) (bool, error) {
	var count int64
	if err := tx.Model(&storeModels.DownloadToken{}).
		Where("digital_order_id = ?", order.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	var items []storeModels.DigitalOrderItem
	if err := tx.Where("digital_order_id = ?", order.ID).Find(&items).Error; err != nil {
		return false, err
	}

	expiresAt := time.Now().AddDate(0, 0, TokenValidityDays)
	for _, item := range items {
		token := storeModels.DownloadToken{
			DigitalOrderID: order.ID,
			ProductID:      item.ProductID,
			Token:          newDownloadToken(),
			ExpiresAt:      expiresAt,
			MaxDownloads:   DefaultMaxDownloads,
			DownloadsUsed:  0,
		}
		if err := tx.Create(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return false, err
		}
	}
	return true, nil
}

// NotifyCourseGrant dispatches the purchase-confirmation email for a newly
// granted course order. Best effort: a failure is logged and swallowed.
func (g *Granter) NotifyCourseGrant(order *storeModels.Order) {
	var user models.User
	if err := g.db.First(&user, order.UserID).Error; err != nil {
		log.Printf("[GRANTER] Skipping confirmation email, user %d not found: %v", order.UserID, err)
		return
	}
	var course courseModels.Course
	if err := g.db.First(&course, order.CourseID).Error; err != nil {
		log.Printf("[GRANTER] Skipping confirmation email, course %d not found: %v", order.CourseID, err)
		return
	}

	if err := g.jobs.Enqueue(JobTypeEmail, purchaseConfirmationEmail(user.Email, user.Name, course.Title, order.Amount)); err != nil {
		log.Printf("[GRANTER] Failed to enqueue confirmation email for order %d: %v", order.ID, err)
	}
	if err := g.jobs.Enqueue(JobTypeEmail, enrollmentEmail(user.Email, user.Name, course.Title)); err != nil {
		log.Printf("[GRANTER] Failed to enqueue enrollment email for order %d: %v", order.ID, err)
	}
}

// NotifyDigitalGrant dispatches the downloads-ready email for a newly
// granted digital order. Best effort.
func (g *Granter) NotifyDigitalGrant(order *storeModels.DigitalOrder) {
	var user models.User
	if err := g.db.First(&user, order.UserID).Error; err != nil {
		log.Printf("[GRANTER] Skipping downloads email, user %d not found: %v", order.UserID, err)
		return
	}

	var count int64
	g.db.Model(&storeModels.DigitalOrderItem{}).Where("digital_order_id = ?", order.ID).Count(&count)

	if err := g.jobs.Enqueue(JobTypeEmail, downloadsReadyEmail(user.Email, user.Name, int(count))); err != nil {
		log.Printf("[GRANTER] Failed to enqueue downloads email for order %d: %v", order.ID, err)
	}
}

// newDownloadToken returns an unguessable 32-character hex token.
func newDownloadToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
