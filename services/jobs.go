package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"lms/models"

	"gorm.io/gorm"
)

// Job types handled by the queue.
const (
	JobTypeEmail       = "email.send"
	JobTypeCertificate = "certificate.issue"
)

// EmailJob is the payload of an email.send job: a fully rendered message.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// CertificateJob is the payload of a certificate.issue job.
type CertificateJob struct {
	UserID   uint `json:"user_id"`
	CourseID uint `json:"course_id"`
}

// JobHandler executes one job payload. A returned error leaves the job
// pending for a later retry.
type JobHandler func(payload []byte) error

// Jobs is a database-backed queue for fire-and-forget side effects. Enqueue
// persists the job and kicks an asynchronous run; RunPending re-drives
// anything left over (crashed process, failed attempts) from the scheduler.
// Failures are recorded on the job row, never surfaced to the request that
// enqueued them.
type Jobs struct {
	db *gorm.DB

	mu       sync.RWMutex
	handlers map[string]JobHandler
}

// NewJobs creates a job queue on the given database connection.
func NewJobs(db *gorm.DB) *Jobs {
	return &Jobs{db: db, handlers: make(map[string]JobHandler)}
}

// Register binds a handler to a job type. Jobs of unregistered types stay
// pending until a handler appears.
func (q *Jobs) Register(jobType string, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue persists a job and starts an asynchronous attempt. The caller is
// never blocked on the job's execution.
func (q *Jobs) Enqueue(jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return Errorf(ErrInvalidInput, "invalid job payload")
	}

	job := models.Job{
		Type:        jobType,
		Payload:     data,
		Status:      models.JobStatusPending,
		MaxAttempts: 5,
		RunAfter:    time.Now(),
	}
	if err := q.db.Create(&job).Error; err != nil {
		return err
	}

	go q.run(job.ID)
	return nil
}

// RunPending executes every due pending job and returns how many ran.
// Called by the cron scheduler as the retry path.
func (q *Jobs) RunPending() int {
	var jobs []models.Job
	if err := q.db.
		Where("status = ? AND run_after <= ?", models.JobStatusPending, time.Now()).
		Order("id asc").
		Find(&jobs).Error; err != nil {
		log.Printf("[JOBS] Error fetching pending jobs: %v", err)
		return 0
	}

	ran := 0
	for _, job := range jobs {
		if q.run(job.ID) {
			ran++
		}
	}
	return ran
}

func (q *Jobs) handler(jobType string) JobHandler {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.handlers[jobType]
}

// run claims and executes one job. The PENDING->RUNNING update is a
// compare-and-swap so two workers cannot execute the same attempt.
func (q *Jobs) run(id uint) bool {
	claim := q.db.Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":   models.JobStatusRunning,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if claim.Error != nil || claim.RowsAffected == 0 {
		return false
	}

	var job models.Job
	if err := q.db.First(&job, id).Error; err != nil {
		return false
	}

	handler := q.handler(job.Type)
	if handler == nil {
		log.Printf("[JOBS] No handler registered for job type %s (job %d)", job.Type, job.ID)
		q.db.Model(&job).Updates(map[string]interface{}{
			"status":   models.JobStatusPending,
			"attempts": gorm.Expr("attempts - 1"),
			"run_after": time.Now().Add(time.Minute),
		})
		return false
	}

	if err := handler(job.Payload); err != nil {
		log.Printf("[JOBS] Job %d (%s) attempt %d failed: %v", job.ID, job.Type, job.Attempts, err)

		status := models.JobStatusPending
		if job.Attempts >= job.MaxAttempts {
			status = models.JobStatusFailed
			log.Printf("[JOBS] Job %d (%s) exhausted %d attempts, giving up", job.ID, job.Type, job.Attempts)
		}
		q.db.Model(&job).Updates(map[string]interface{}{
			"status":     status,
			"last_error": err.Error(),
			"run_after":  time.Now().Add(time.Duration(job.Attempts) * time.Minute),
		})
		return false
	}

	q.db.Model(&job).Updates(map[string]interface{}{
		"status":     models.JobStatusDone,
		"last_error": "",
	})
	return true
}
