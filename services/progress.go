package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// pairLocks serializes work per (student, course) pair.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pairLocks) get(userID, courseID uint) *sync.Mutex {
	key := fmt.Sprintf("%d:%d", userID, courseID)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}

// Tracker records per-lesson completion and keeps the enrollment's progress
// percent derived from the authoritative completion set. Reaching 100%
// flips the enrollment to completed and enqueues certificate issuance;
// the triggering request never waits on it.
type Tracker struct {
	db    *gorm.DB
	jobs  *Jobs
	locks pairLocks
}

func NewTracker(db *gorm.DB, jobs *Jobs) *Tracker {
	return &Tracker{db: db, jobs: jobs}
}

// SetLessonCompletion adds or removes a lesson from the student's completed
// set and recomputes the enrollment percent. Idempotent in both directions.
func (t *Tracker) SetLessonCompletion(userID, courseID, lessonID uint, completed bool) (*courseModels.Enrollment, error) {
	lock := t.locks.get(userID, courseID)
	lock.Lock()
	defer lock.Unlock()

	var enrollment courseModels.Enrollment
	if err := t.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return nil, Errorf(ErrForbidden, "not enrolled in this course")
	}

	var lesson courseModels.Lesson
	if err := t.db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?",
		lessonID, courseID, false, true).First(&lesson).Error; err != nil {
		return nil, Errorf(ErrNotFound, "lesson not found in this course")
	}

	// Track the last watched lesson regardless of the completed flag.
	var progress courseModels.Progress
	if err := t.db.Where(courseModels.Progress{UserID: userID, CourseID: courseID}).
		FirstOrCreate(&progress).Error; err != nil {
		return nil, err
	}
	if progress.LastWatchedLessonID != lessonID {
		if err := t.db.Model(&progress).Update("last_watched_lesson_id", lessonID).Error; err != nil {
			return nil, err
		}
	}

	if completed {
		record := courseModels.LessonCompletion{UserID: userID, LessonID: lessonID, CourseID: courseID}
		if err := t.db.Create(&record).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	} else {
		if err := t.db.Unscoped().
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			Delete(&courseModels.LessonCompletion{}).Error; err != nil {
			return nil, err
		}
	}

	if err := t.syncEnrollment(&enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// RecomputeAll re-derives every enrolled student's percent for a course
// from scratch. Run after lessons are added or removed. Returns how many
// enrollments changed.
func (t *Tracker) RecomputeAll(courseID uint) (int, error) {
	var course courseModels.Course
	if err := t.db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return 0, Errorf(ErrNotFound, "course not found")
	}

	var enrollments []courseModels.Enrollment
	if err := t.db.Where("course_id = ? AND is_deleted = ?", courseID, false).Find(&enrollments).Error; err != nil {
		return 0, err
	}

	changed := 0
	for i := range enrollments {
		e := &enrollments[i]
		lock := t.locks.get(e.UserID, e.CourseID)
		lock.Lock()
		before := e.ProgressPercent
		err := t.syncEnrollment(e)
		lock.Unlock()
		if err != nil {
			return changed, err
		}
		if e.ProgressPercent != before {
			changed++
		}
	}
	return changed, nil
}

// computePercent derives the percent from the completion rows joined to
// the live published lessons. The live lesson count is the one canonical
// denominator; completions of since-removed lessons never count.
func (t *Tracker) computePercent(userID, courseID uint) (int, error) {
	var total int64
	if err := t.db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	var done int64
	if err := t.db.Model(&courseModels.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Where("lesson_completions.user_id = ? AND lesson_completions.course_id = ?", userID, courseID).
		Where("lessons.is_deleted = ? AND lessons.is_published = ?", false, true).
		Count(&done).Error; err != nil {
		return 0, err
	}

	return int(math.Round(100 * float64(done) / float64(total))), nil
}

// syncEnrollment writes the freshly computed percent onto the enrollment,
// only when it changed, and handles the 100% completion edge.
func (t *Tracker) syncEnrollment(enrollment *courseModels.Enrollment) error {
	percent, err := t.computePercent(enrollment.UserID, enrollment.CourseID)
	if err != nil {
		return err
	}
	if percent == enrollment.ProgressPercent &&
		(percent == 100) == enrollment.Completed {
		return nil
	}

	updates := map[string]interface{}{"progress_percent": percent}
	reachedCompletion := false

	switch {
	case percent == 100 && !enrollment.Completed:
		now := time.Now()
		updates["status"] = "COMPLETED"
		updates["completed"] = true
		updates["completed_at"] = &now
		enrollment.Completed = true
		enrollment.CompletedAt = &now
		enrollment.Status = "COMPLETED"
		reachedCompletion = true
	case percent < 100 && enrollment.Completed:
		// No certificate revocation; only the flag is cleared.
		updates["completed"] = false
		updates["completed_at"] = nil
		updates["status"] = "IN_PROGRESS"
		enrollment.Completed = false
		enrollment.CompletedAt = nil
		enrollment.Status = "IN_PROGRESS"
	case percent > 0 && enrollment.Status == "ENROLLED":
		updates["status"] = "IN_PROGRESS"
		enrollment.Status = "IN_PROGRESS"
	}

	if err := t.db.Model(&courseModels.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Updates(updates).Error; err != nil {
		return err
	}
	enrollment.ProgressPercent = percent

	if reachedCompletion {
		job := CertificateJob{UserID: enrollment.UserID, CourseID: enrollment.CourseID}
		if err := t.jobs.Enqueue(JobTypeCertificate, job); err != nil {
			// Issuance failure must never affect the completion call; the
			// scheduler or the manual retry endpoint picks it up.
			log.Printf("[PROGRESS] Failed to enqueue certificate for user %d course %d: %v",
				enrollment.UserID, enrollment.CourseID, err)
		}
	}
	return nil
}
