package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment tracks a user's access to a course with progress. The unique
// (user, course) index is the correctness backstop for idempotent grants.
type Enrollment struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID        uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	Status          string     `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, IN_PROGRESS, COMPLETED
	ProgressPercent int        `json:"progress_percent" gorm:"default:0"`
	Completed       bool       `json:"completed" gorm:"default:false"`
	CompletedAt     *time.Time `json:"completed_at"`
	IsDeleted       bool       `gorm:"default:false"`
}
