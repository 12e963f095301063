package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingHandler struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (h *recordingHandler) handle(payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("handler failure")
	}
	h.payloads = append(h.payloads, payload)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads)
}

func jobByID(t *testing.T, db *gorm.DB, id uint) *models.Job {
	t.Helper()
	var job models.Job
	require.NoError(t, db.First(&job, id).Error)
	return &job
}

func TestEnqueueRunsJobAsynchronously(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	handler := &recordingHandler{}
	jobs.Register("test.noop", handler.handle)

	require.NoError(t, jobs.Enqueue("test.noop", map[string]string{"hello": "world"}))

	require.Eventually(t, func() bool { return handler.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	var job models.Job
	require.NoError(t, db.Where("type = ?", "test.noop").First(&job).Error)
	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.JSONEq(t, `{"hello":"world"}`, string(job.Payload))
}

func TestFailedJobStaysPendingWithBackoff(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	handler := &recordingHandler{fail: true}
	jobs.Register("test.flaky", handler.handle)

	require.NoError(t, jobs.Enqueue("test.flaky", map[string]string{}))

	var job models.Job
	require.Eventually(t, func() bool {
		if err := db.Where("type = ?", "test.flaky").First(&job).Error; err != nil {
			return false
		}
		return job.Status == models.JobStatusPending && job.Attempts == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "handler failure", job.LastError)
	assert.True(t, job.RunAfter.After(time.Now()), "backoff pushes the retry into the future")
}

func TestRunPendingRetriesUntilExhausted(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	handler := &recordingHandler{fail: true}
	jobs.Register("test.doomed", handler.handle)

	job := models.Job{
		Type:        "test.doomed",
		Payload:     []byte(`{}`),
		Status:      models.JobStatusPending,
		MaxAttempts: 3,
		RunAfter:    time.Now(),
	}
	require.NoError(t, db.Create(&job).Error)

	for i := 0; i < 3; i++ {
		// Make the job due again regardless of the recorded backoff.
		require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":    models.JobStatusPending,
				"run_after": time.Now().Add(-time.Second),
			}).Error)
		jobs.RunPending()
	}

	final := jobByID(t, db, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	assert.Equal(t, 3, final.Attempts)
}

func TestRunPendingRecoversAfterHandlerFixed(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	handler := &recordingHandler{fail: true}
	jobs.Register("test.recover", handler.handle)

	require.NoError(t, jobs.Enqueue("test.recover", map[string]string{}))
	require.Eventually(t, func() bool {
		var job models.Job
		if err := db.Where("type = ?", "test.recover").First(&job).Error; err != nil {
			return false
		}
		return job.Status == models.JobStatusPending && job.Attempts == 1
	}, 2*time.Second, 10*time.Millisecond)

	handler.mu.Lock()
	handler.fail = false
	handler.mu.Unlock()

	require.NoError(t, db.Model(&models.Job{}).Where("type = ?", "test.recover").
		Update("run_after", time.Now().Add(-time.Second)).Error)

	ran := jobs.RunPending()
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, handler.count())
}

func TestUnregisteredJobTypeStaysPending(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)

	require.NoError(t, jobs.Enqueue("test.orphan", map[string]string{}))

	// The async attempt finds no handler and parks the job for later.
	var job models.Job
	require.Eventually(t, func() bool {
		if err := db.Where("type = ?", "test.orphan").First(&job).Error; err != nil {
			return false
		}
		return job.Status == models.JobStatusPending
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, job.Attempts, "an attempt without a handler does not count")
}

func TestRunPendingSkipsFutureJobs(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	handler := &recordingHandler{}
	jobs.Register("test.later", handler.handle)

	job := models.Job{
		Type:        "test.later",
		Payload:     []byte(`{}`),
		Status:      models.JobStatusPending,
		MaxAttempts: 5,
		RunAfter:    time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&job).Error)

	assert.Zero(t, jobs.RunPending())
	assert.Zero(t, handler.count())
}
