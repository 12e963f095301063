package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	storeModels "lms/models/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

// newTestDB opens a fresh in-memory database with the full schema. A single
// connection keeps sqlite happy under concurrent test traffic.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeBlobStore records puts and signs URLs deterministically. failPut
// simulates an unavailable storage backend.
type fakeBlobStore struct {
	mu      sync.Mutex
	puts    map[string][]byte
	public  map[string]bool
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{puts: make(map[string][]byte), public: make(map[string]bool)}
}

func (f *fakeBlobStore) Put(key string, data []byte, public bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", errors.New("storage unavailable")
	}
	f.puts[key] = data
	f.public[key] = public
	return "https://blob.test/" + key, nil
}

func (f *fakeBlobStore) SignURL(key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blob.test/signed/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeBlobStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     "Test Student",
		Email:    email,
		Password: "not-a-real-hash",
		Role:     "USER",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestCourse(t *testing.T, db *gorm.DB, price float64, lessons int) *courseModels.Course {
	t.Helper()
	course := &courseModels.Course{
		Title:       "Go From Scratch",
		Description: "A test course",
		Price:       price,
		Status:      "ACTIVE",
		IsPublished: true,
	}
	require.NoError(t, db.Create(course).Error)
	for i := 0; i < lessons; i++ {
		lesson := &courseModels.Lesson{
			CourseID:    course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			ContentType: "TEXT",
			OrderIndex:  i,
			IsPublished: true,
		}
		require.NoError(t, db.Create(lesson).Error)
	}
	return course
}

func createTestProduct(t *testing.T, db *gorm.DB, title string, price float64, public bool) *storeModels.Product {
	t.Helper()
	product := &storeModels.Product{
		Title:        title,
		Price:        price,
		FileKey:      "products/" + title,
		FileURL:      "https://blob.test/products/" + title,
		FileIsPublic: public,
		IsPublished:  true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func enroll(t *testing.T, db *gorm.DB, userID, courseID uint) *courseModels.Enrollment {
	t.Helper()
	enrollment := &courseModels.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   "ENROLLED",
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

func courseLessons(t *testing.T, db *gorm.DB, courseID uint) []courseModels.Lesson {
	t.Helper()
	var lessons []courseModels.Lesson
	require.NoError(t, db.Where("course_id = ?", courseID).Order("order_index asc").Find(&lessons).Error)
	return lessons
}

func countJobs(t *testing.T, db *gorm.DB, jobType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Job{}).Where("type = ?", jobType).Count(&count).Error)
	return count
}
