package services

import (
	"strings"
	"sync"
	"testing"

	courseModels "lms/models/course"
	storeModels "lms/models/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	jobs := NewJobs(db)
	granter := NewGranter(db, jobs)
	return NewLedger(db, granter), db
}

func TestRecordCourseOrderFreeCourseGrantsImmediately(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "free@test.com")
	course := createTestCourse(t, db, 0, 2)

	order, err := ledger.RecordCourseOrder(user.ID, course.ID, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, storeModels.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, strings.HasPrefix(order.TransactionID, "FREE-"))

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, "ENROLLED", enrollment.Status)
	assert.Equal(t, 0, enrollment.ProgressPercent)
}

func TestRecordCourseOrderPricedCourseStaysPending(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "priced@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	order, err := ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-1001", "")
	require.NoError(t, err)
	assert.Equal(t, storeModels.PaymentStatusPending, order.PaymentStatus)

	var count int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count, "no enrollment before payment")
}

func TestRecordCourseOrderValidation(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "validation@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	_, err := ledger.RecordCourseOrder(user.ID, 9999, "UPI", "TXN-1", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.RecordCourseOrder(user.ID, course.ID, "", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	unpublished := createTestCourse(t, db, 10, 1)
	require.NoError(t, db.Model(unpublished).Update("is_published", false).Error)
	_, err = ledger.RecordCourseOrder(user.ID, unpublished.ID, "UPI", "TXN-2", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordCourseOrderRejectsDuplicates(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "dup@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	_, err := ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-2001", "")
	require.NoError(t, err)

	// A second order while one is PENDING is a conflict.
	_, err = ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-2002", "")
	assert.ErrorIs(t, err, ErrConflict)

	// Enrolled users cannot order the course again either.
	free := createTestCourse(t, db, 0, 1)
	_, err = ledger.RecordCourseOrder(user.ID, free.ID, "", "", "")
	require.NoError(t, err)
	_, err = ledger.RecordCourseOrder(user.ID, free.ID, "", "", "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSetOrderPaymentStatusPaidCreatesOneEnrollment(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "paid@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	order, err := ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-3001", "")
	require.NoError(t, err)

	updated, err := ledger.SetOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
	require.NoError(t, err)
	assert.Equal(t, storeModels.PaymentStatusPaid, updated.PaymentStatus)

	// Marking it PAID again is a safe no-op.
	_, err = ledger.SetOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
	require.NoError(t, err)

	var count int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSetOrderPaymentStatusRejectsSettledTransitions(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "settled@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	order, err := ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-4001", "")
	require.NoError(t, err)

	_, err = ledger.SetOrderPaymentStatus(order.ID, storeModels.PaymentStatusFailed, "")
	require.NoError(t, err)

	_, err = ledger.SetOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = ledger.SetOrderPaymentStatus(order.ID, "REFUNDED", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.SetOrderPaymentStatus(9999, storeModels.PaymentStatusPaid, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetOrderPaymentStatusConcurrentCallers(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "race@test.com")
	course := createTestCourse(t, db, 49.99, 2)

	order, err := ledger.RecordCourseOrder(user.ID, course.ID, "UPI", "TXN-5001", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.SetOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	var count int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count)
	assert.EqualValues(t, 1, count, "racing settlements must produce exactly one enrollment")
}

func TestCheckoutCartSnapshotsAndClearsCart(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "cart@test.com")
	p1 := createTestProduct(t, db, "ebook.pdf", 9.99, false)
	p2 := createTestProduct(t, db, "wallpapers.zip", 5.00, true)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: p1.ID}).Error)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: p2.ID}).Error)

	order, err := ledger.CheckoutCart(user.ID, "UPI", "TXN-6001")
	require.NoError(t, err)
	assert.Equal(t, storeModels.PaymentStatusPending, order.PaymentStatus)
	assert.InDelta(t, 14.99, order.TotalAmount, 0.001)

	var items []storeModels.DigitalOrderItem
	require.NoError(t, db.Where("digital_order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 2)

	// Catalog edits after checkout must not change what was sold.
	require.NoError(t, db.Model(p1).Update("price", 99.99).Error)
	require.NoError(t, db.Where("digital_order_id = ? AND product_id = ?", order.ID, p1.ID).First(&items[0]).Error)
	assert.InDelta(t, 9.99, items[0].UnitPrice, 0.001)

	var cartCount int64
	db.Model(&storeModels.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount)
	assert.Zero(t, cartCount, "checkout clears the cart")
}

func TestCheckoutCartFreeOrderMintsTokens(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "freecart@test.com")
	product := createTestProduct(t, db, "sample.pdf", 0, true)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: product.ID}).Error)

	order, err := ledger.CheckoutCart(user.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, storeModels.PaymentStatusPaid, order.PaymentStatus)

	var tokens []storeModels.DownloadToken
	require.NoError(t, db.Where("digital_order_id = ?", order.ID).Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Len(t, tokens[0].Token, 32)
	assert.Equal(t, DefaultMaxDownloads, tokens[0].MaxDownloads)
}

func TestCheckoutCartValidation(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "emptycart@test.com")

	_, err := ledger.CheckoutCart(user.ID, "UPI", "TXN-7001")
	assert.ErrorIs(t, err, ErrInvalidInput, "empty cart")

	product := createTestProduct(t, db, "gone.pdf", 3.00, true)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: product.ID}).Error)
	require.NoError(t, db.Model(product).Update("is_published", false).Error)

	_, err = ledger.CheckoutCart(user.ID, "UPI", "TXN-7002")
	assert.ErrorIs(t, err, ErrNotFound, "unpublished product")

	require.NoError(t, db.Model(product).Update("is_published", true).Error)
	_, err = ledger.CheckoutCart(user.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput, "priced cart needs payment details")
}

func TestSetDigitalOrderPaymentStatusMintsTokensOnce(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createTestUser(t, db, "digital@test.com")
	p1 := createTestProduct(t, db, "course-notes.pdf", 4.00, false)
	p2 := createTestProduct(t, db, "icons.zip", 6.00, false)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: p1.ID}).Error)
	require.NoError(t, db.Create(&storeModels.CartItem{UserID: user.ID, ProductID: p2.ID}).Error)

	order, err := ledger.CheckoutCart(user.ID, "UPI", "TXN-8001")
	require.NoError(t, err)

	_, err = ledger.SetDigitalOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
	require.NoError(t, err)

	// Re-settling is a no-op; the token set does not grow.
	_, err = ledger.SetDigitalOrderPaymentStatus(order.ID, storeModels.PaymentStatusPaid, "")
	require.NoError(t, err)

	var tokens []storeModels.DownloadToken
	require.NoError(t, db.Where("digital_order_id = ?", order.ID).Find(&tokens).Error)
	assert.Len(t, tokens, 2, "one token per line item, minted exactly once")
}

func TestDuplicateTransactionIDIsConflict(t *testing.T) {
	ledger, db := newTestLedger(t)
	u1 := createTestUser(t, db, "txn1@test.com")
	u2 := createTestUser(t, db, "txn2@test.com")
	c1 := createTestCourse(t, db, 20, 1)
	c2 := createTestCourse(t, db, 30, 1)

	_, err := ledger.RecordCourseOrder(u1.ID, c1.ID, "UPI", "TXN-9001", "")
	require.NoError(t, err)

	_, err = ledger.RecordCourseOrder(u2.ID, c2.ID, "UPI", "TXN-9001", "")
	assert.ErrorIs(t, err, ErrConflict)
}
