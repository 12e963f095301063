package services

import (
	"errors"
	"fmt"

	courseModels "lms/models/course"
	storeModels "lms/models/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger owns Order and DigitalOrder records: the single source of truth
// for whether a payment occurred. The PENDING->PAID transition and the
// resulting grant run as one transaction, with the status update done as a
// compare-and-swap so two racing updates produce exactly one grant.
type Ledger struct {
	db      *gorm.DB
	granter *Granter
}

func NewLedger(db *gorm.DB, granter *Granter) *Ledger {
	return &Ledger{db: db, granter: granter}
}

// paymentTransitions is the explicit state machine for order payment
// status. PAID and FAILED are terminal.
var paymentTransitions = map[storeModels.PaymentStatus][]storeModels.PaymentStatus{
	storeModels.PaymentStatusPending: {
		storeModels.PaymentStatusPaid,
		storeModels.PaymentStatusFailed,
	},
}

func canTransition(from, to storeModels.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func freeTransactionID() string {
	return "FREE-" + uuid.NewString()
}

// RecordCourseOrder creates a course purchase order for the buyer. A
// zero-price course is recorded PAID and granted in the same transaction;
// a priced course starts PENDING and waits for SetOrderPaymentStatus.
func (l *Ledger) RecordCourseOrder(userID, courseID uint, paymentMethod, transactionID, proofURL string) (*storeModels.Order, error) {
	var course courseModels.Course
	if err := l.db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		First(&course).Error; err != nil {
		return nil, Errorf(ErrNotFound, "course not found")
	}

	var enrollment courseModels.Enrollment
	if err := l.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err == nil {
		return nil, Errorf(ErrConflict, "already enrolled in this course")
	}

	var active storeModels.Order
	if err := l.db.Where("user_id = ? AND course_id = ? AND payment_status IN ? AND is_deleted = ?",
		userID, courseID, []storeModels.PaymentStatus{storeModels.PaymentStatusPending, storeModels.PaymentStatusPaid}, false).
		First(&active).Error; err == nil {
		return nil, Errorf(ErrConflict, "an active order for this course already exists")
	}

	order := storeModels.Order{
		UserID:          userID,
		CourseID:        courseID,
		Amount:          course.Price,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   storeModels.PaymentStatusPending,
		TransactionID:   transactionID,
		PaymentProofURL: proofURL,
	}

	if course.Price == 0 {
		order.PaymentStatus = storeModels.PaymentStatusPaid
		if order.TransactionID == "" {
			order.TransactionID = freeTransactionID()
		}
		err := l.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			_, err := l.granter.OnCourseOrderPaid(tx, &order)
			return err
		})
		if err != nil {
			return nil, translateCreateError(err)
		}
		l.granter.NotifyCourseGrant(&order)
		return &order, nil
	}

	if paymentMethod == "" || transactionID == "" {
		return nil, Errorf(ErrInvalidInput, "payment method and transaction id are required")
	}
	if err := l.db.Create(&order).Error; err != nil {
		return nil, translateCreateError(err)
	}
	return &order, nil
}

// SetOrderPaymentStatus moves a course order to PAID or FAILED. Invoking it
// again with a status the order already holds is a no-op that re-drives the
// grant, so retries and double-submits are always safe.
func (l *Ledger) SetOrderPaymentStatus(orderID uint, status storeModels.PaymentStatus, transactionID string) (*storeModels.Order, error) {
	if status != storeModels.PaymentStatusPaid && status != storeModels.PaymentStatusFailed {
		return nil, Errorf(ErrInvalidInput, "unsupported payment status %q", status)
	}

	var order storeModels.Order
	if err := l.db.Where("id = ? AND is_deleted = ?", orderID, false).First(&order).Error; err != nil {
		return nil, Errorf(ErrNotFound, "order not found")
	}

	if order.PaymentStatus == status {
		// Already settled to the requested state. Re-driving the granter
		// from ledger state is always safe.
		if status == storeModels.PaymentStatusPaid {
			if _, err := l.granter.OnCourseOrderPaid(l.db, &order); err != nil {
				return nil, err
			}
		}
		return &order, nil
	}
	if !canTransition(order.PaymentStatus, status) {
		return nil, Errorf(ErrConflict, "payment already settled as %s", order.PaymentStatus)
	}

	granted := false
	err := l.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"payment_status": status}
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
		res := tx.Model(&storeModels.Order{}).
			Where("id = ? AND payment_status = ?", orderID, storeModels.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; the outer retry below decides what that means.
			return nil
		}
		order.PaymentStatus = status
		if status == storeModels.PaymentStatusPaid {
			created, err := l.granter.OnCourseOrderPaid(tx, &order)
			if err != nil {
				return err
			}
			granted = created
		}
		return nil
	})
	if err != nil {
		return nil, translateCreateError(err)
	}

	// Reload to observe whoever won the transition.
	if err := l.db.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if order.PaymentStatus != status {
		return nil, Errorf(ErrConflict, "payment already settled as %s", order.PaymentStatus)
	}

	if granted {
		l.granter.NotifyCourseGrant(&order)
	} else if status == storeModels.PaymentStatusPaid {
		// A concurrent caller won the CAS; make sure the grant exists
		// before reporting success.
		if _, err := l.granter.OnCourseOrderPaid(l.db, &order); err != nil {
			return nil, err
		}
	}
	return &order, nil
}

// CheckoutCart turns the buyer's cart into a DigitalOrder, snapshotting
// titles and prices, and clears the cart in the same transaction. A
// zero-total cart is recorded PAID with its tokens minted immediately.
func (l *Ledger) CheckoutCart(userID uint, paymentMethod, transactionID string) (*storeModels.DigitalOrder, error) {
	var items []storeModels.CartItem
	if err := l.db.Where("user_id = ?", userID).Preload("Product").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, Errorf(ErrInvalidInput, "cart is empty")
	}

	total := 0.0
	orderItems := make([]storeModels.DigitalOrderItem, 0, len(items))
	for _, item := range items {
		if item.Product.ID == 0 || item.Product.IsDeleted || !item.Product.IsPublished {
			return nil, Errorf(ErrNotFound, "product %d is no longer available", item.ProductID)
		}
		total += item.Product.Price
		orderItems = append(orderItems, storeModels.DigitalOrderItem{
			ProductID: item.ProductID,
			Title:     item.Product.Title,
			UnitPrice: item.Product.Price,
		})
	}

	order := storeModels.DigitalOrder{
		UserID:        userID,
		TotalAmount:   total,
		PaymentMethod: paymentMethod,
		PaymentStatus: storeModels.PaymentStatusPending,
		TransactionID: transactionID,
	}
	free := total == 0
	if free {
		order.PaymentStatus = storeModels.PaymentStatusPaid
		if order.TransactionID == "" {
			order.TransactionID = freeTransactionID()
		}
	} else if paymentMethod == "" || transactionID == "" {
		return nil, Errorf(ErrInvalidInput, "payment method and transaction id are required")
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range orderItems {
			orderItems[i].DigitalOrderID = order.ID
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return err
		}
		if free {
			if _, err := l.granter.OnDigitalOrderPaid(tx, &order); err != nil {
				return err
			}
		}
		return tx.Where("user_id = ?", userID).Delete(&storeModels.CartItem{}).Error
	})
	if err != nil {
		return nil, translateCreateError(err)
	}

	if free {
		l.granter.NotifyDigitalGrant(&order)
	}
	return &order, nil
}

// SetDigitalOrderPaymentStatus is the digital-order counterpart of
// SetOrderPaymentStatus; a winning PENDING->PAID transition mints the
// order's download tokens in the same transaction.
func (l *Ledger) SetDigitalOrderPaymentStatus(orderID uint, status storeModels.PaymentStatus, transactionID string) (*storeModels.DigitalOrder, error) {
	if status != storeModels.PaymentStatusPaid && status != storeModels.PaymentStatusFailed {
		return nil, Errorf(ErrInvalidInput, "unsupported payment status %q", status)
	}

	var order storeModels.DigitalOrder
	if err := l.db.Where("id = ? AND is_deleted = ?", orderID, false).First(&order).Error; err != nil {
		return nil, Errorf(ErrNotFound, "order not found")
	}

	if order.PaymentStatus == status {
		if status == storeModels.PaymentStatusPaid {
			if _, err := l.granter.OnDigitalOrderPaid(l.db, &order); err != nil {
				return nil, err
			}
		}
		return &order, nil
	}
	if !canTransition(order.PaymentStatus, status) {
		return nil, Errorf(ErrConflict, "payment already settled as %s", order.PaymentStatus)
	}

	granted := false
	err := l.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"payment_status": status}
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
		res := tx.Model(&storeModels.DigitalOrder{}).
			Where("id = ? AND payment_status = ?", orderID, storeModels.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		order.PaymentStatus = status
		if status == storeModels.PaymentStatusPaid {
			created, err := l.granter.OnDigitalOrderPaid(tx, &order)
			if err != nil {
				return err
			}
			granted = created
		}
		return nil
	})
	if err != nil {
		return nil, translateCreateError(err)
	}

	if err := l.db.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if order.PaymentStatus != status {
		return nil, Errorf(ErrConflict, "payment already settled as %s", order.PaymentStatus)
	}

	if granted {
		l.granter.NotifyDigitalGrant(&order)
	} else if status == storeModels.PaymentStatusPaid {
		if _, err := l.granter.OnDigitalOrderPaid(l.db, &order); err != nil {
			return nil, err
		}
	}
	return &order, nil
}

// translateCreateError maps unique-index violations (most importantly the
// global transaction id) onto the Conflict kind.
func translateCreateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Errorf(ErrConflict, "transaction already processed")
	}
	var svc *svcError
	if errors.As(err, &svc) {
		return err
	}
	return fmt.Errorf("ledger: %w", err)
}
