package course

import "gorm.io/gorm"

// Progress holds per-course tracking state for a student. The completed
// lesson set itself lives in LessonCompletion rows.
type Progress struct {
	gorm.Model
	UserID              uint `json:"user_id" gorm:"not null;uniqueIndex:idx_progress_user_course"`
	CourseID            uint `json:"course_id" gorm:"not null;uniqueIndex:idx_progress_user_course"`
	LastWatchedLessonID uint `json:"last_watched_lesson_id" gorm:"default:0"`
}

// LessonCompletion records a single completed lesson for a student. The
// unique (user, lesson) index gives the set semantics: marking a lesson
// complete twice cannot double-count.
type LessonCompletion struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_completion_user_lesson"`
	LessonID uint `json:"lesson_id" gorm:"not null;uniqueIndex:idx_completion_user_lesson"`
	CourseID uint `json:"course_id" gorm:"index;not null"`
}
