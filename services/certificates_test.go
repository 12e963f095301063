package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestIssuer(t *testing.T) (*Issuer, *fakeBlobStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	return NewIssuer(db, blobs, NewJobs(db)), blobs, db
}

func completeEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"status": "COMPLETED", "progress_percent": 100,
			"completed": true, "completed_at": &now,
		}).Error)
}

func TestIssueCreatesCertificate(t *testing.T) {
	issuer, blobs, db := newTestIssuer(t)
	user := createTestUser(t, db, "cert@test.com")
	course := createTestCourse(t, db, 0, 1)
	enroll(t, db, user.ID, course.ID)
	completeEnrollment(t, db, user.ID, course.ID)

	certificate, err := issuer.Issue(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(certificate.CertificateNumber, "CERT-"))
	assert.Contains(t, certificate.CertificateURL, "certificates/")
	assert.Equal(t, 1, blobs.putCount())

	// The stored document carries the student and course.
	blobs.mu.Lock()
	var body string
	for _, data := range blobs.puts {
		body = string(data)
	}
	blobs.mu.Unlock()
	assert.Contains(t, body, user.Name)
	assert.Contains(t, body, course.Title)

	assert.EqualValues(t, 1, countJobs(t, db, JobTypeEmail))
}

func TestIssueIsIdempotent(t *testing.T) {
	issuer, blobs, db := newTestIssuer(t)
	user := createTestUser(t, db, "certidem@test.com")
	course := createTestCourse(t, db, 0, 1)
	enroll(t, db, user.ID, course.ID)
	completeEnrollment(t, db, user.ID, course.ID)

	first, err := issuer.Issue(user.ID, course.ID)
	require.NoError(t, err)
	second, err := issuer.Issue(user.ID, course.ID)
	require.NoError(t, err)

	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)
	assert.Equal(t, 1, blobs.putCount(), "no re-render for an existing certificate")

	var count int64
	db.Model(&courseModels.Certificate{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestIssueRequiresCompletedEnrollment(t *testing.T) {
	issuer, _, db := newTestIssuer(t)
	user := createTestUser(t, db, "incomplete@test.com")
	course := createTestCourse(t, db, 0, 2)

	_, err := issuer.Issue(user.ID, course.ID)
	assert.ErrorIs(t, err, ErrNotFound, "no enrollment")

	enroll(t, db, user.ID, course.ID)
	_, err = issuer.Issue(user.ID, course.ID)
	assert.ErrorIs(t, err, ErrForbidden, "not completed")
}

func TestIssueRetriesAfterStorageFailure(t *testing.T) {
	issuer, blobs, db := newTestIssuer(t)
	user := createTestUser(t, db, "retry@test.com")
	course := createTestCourse(t, db, 0, 1)
	enroll(t, db, user.ID, course.ID)
	completeEnrollment(t, db, user.ID, course.ID)

	blobs.failPut = true
	_, err := issuer.Issue(user.ID, course.ID)
	assert.ErrorIs(t, err, ErrDependency)

	var count int64
	db.Model(&courseModels.Certificate{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count, "no row without a stored document")

	blobs.failPut = false
	certificate, err := issuer.Issue(user.ID, course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, certificate.CertificateURL)
}

func TestIssueConcurrentCallersSingleCertificate(t *testing.T) {
	issuer, _, db := newTestIssuer(t)
	user := createTestUser(t, db, "certrace@test.com")
	course := createTestCourse(t, db, 0, 1)
	enroll(t, db, user.ID, course.ID)
	completeEnrollment(t, db, user.ID, course.ID)

	var wg sync.WaitGroup
	numbers := make([]string, 4)
	for i := range numbers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			certificate, err := issuer.Issue(user.ID, course.ID)
			if assert.NoError(t, err) {
				numbers[i] = certificate.CertificateNumber
			}
		}(i)
	}
	wg.Wait()

	var count int64
	db.Model(&courseModels.Certificate{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count)
	assert.EqualValues(t, 1, count)
	for _, number := range numbers[1:] {
		assert.Equal(t, numbers[0], number, "every caller sees the same certificate")
	}
}
