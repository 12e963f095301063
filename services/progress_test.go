package services

import (
	"sync"
	"testing"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestTracker(t *testing.T) (*Tracker, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewTracker(db, NewJobs(db)), db
}

func TestSetLessonCompletionAdvancesPercent(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "progress@test.com")
	course := createTestCourse(t, db, 0, 4)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	want := []int{25, 50, 75, 100}
	for i, lesson := range lessons {
		enrollment, err := tracker.SetLessonCompletion(user.ID, course.ID, lesson.ID, true)
		require.NoError(t, err)
		assert.Equal(t, want[i], enrollment.ProgressPercent)
	}

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.True(t, enrollment.Completed)
	assert.Equal(t, "COMPLETED", enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)

	assert.EqualValues(t, 1, countJobs(t, db, JobTypeCertificate))
}

func TestSetLessonCompletionIsIdempotent(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "idem@test.com")
	course := createTestCourse(t, db, 0, 2)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	for i := 0; i < 3; i++ {
		enrollment, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[0].ID, true)
		require.NoError(t, err)
		assert.Equal(t, 50, enrollment.ProgressPercent)
	}

	var count int64
	db.Model(&courseModels.LessonCompletion{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSetLessonCompletionToggleOffDropsCompletion(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "toggle@test.com")
	course := createTestCourse(t, db, 0, 2)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	for _, lesson := range lessons {
		_, err := tracker.SetLessonCompletion(user.ID, course.ID, lesson.ID, true)
		require.NoError(t, err)
	}

	enrollment, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[1].ID, false)
	require.NoError(t, err)
	assert.Equal(t, 50, enrollment.ProgressPercent)
	assert.False(t, enrollment.Completed)
	assert.Equal(t, "IN_PROGRESS", enrollment.Status)
	assert.Nil(t, enrollment.CompletedAt)

	// Re-completing flips it back, and the 100% edge fires again.
	enrollment, err = tracker.SetLessonCompletion(user.ID, course.ID, lessons[1].ID, true)
	require.NoError(t, err)
	assert.True(t, enrollment.Completed)
	assert.EqualValues(t, 2, countJobs(t, db, JobTypeCertificate))
}

func TestSetLessonCompletionGuards(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "guards@test.com")
	course := createTestCourse(t, db, 0, 2)
	other := createTestCourse(t, db, 0, 1)
	lessons := courseLessons(t, db, course.ID)

	_, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[0].ID, true)
	assert.ErrorIs(t, err, ErrForbidden, "not enrolled")

	enroll(t, db, user.ID, course.ID)

	otherLessons := courseLessons(t, db, other.ID)
	_, err = tracker.SetLessonCompletion(user.ID, course.ID, otherLessons[0].ID, true)
	assert.ErrorIs(t, err, ErrNotFound, "lesson from another course")

	require.NoError(t, db.Model(&lessons[0]).Update("is_published", false).Error)
	_, err = tracker.SetLessonCompletion(user.ID, course.ID, lessons[0].ID, true)
	assert.ErrorIs(t, err, ErrNotFound, "unpublished lesson")
}

func TestSetLessonCompletionTracksLastWatched(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "watched@test.com")
	course := createTestCourse(t, db, 0, 3)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	// Even a not-completed update moves the bookmark.
	_, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[2].ID, false)
	require.NoError(t, err)

	var progress courseModels.Progress
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&progress).Error)
	assert.Equal(t, lessons[2].ID, progress.LastWatchedLessonID)
}

func TestRecomputeAllAfterLessonChanges(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "recompute@test.com")
	course := createTestCourse(t, db, 0, 4)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	for _, lesson := range lessons {
		_, err := tracker.SetLessonCompletion(user.ID, course.ID, lesson.ID, true)
		require.NoError(t, err)
	}

	// A fifth lesson dilutes the denominator: 4 of 5 done.
	require.NoError(t, db.Create(&courseModels.Lesson{
		CourseID: course.ID, Title: "Lesson 5", ContentType: "TEXT", OrderIndex: 4, IsPublished: true,
	}).Error)

	changed, err := tracker.RecomputeAll(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 80, enrollment.ProgressPercent)
	assert.False(t, enrollment.Completed, "completion clears when the bar moves")

	// Removing the new lesson restores 100%.
	require.NoError(t, db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND order_index = ?", course.ID, 4).
		Update("is_deleted", true).Error)

	changed, err = tracker.RecomputeAll(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 100, enrollment.ProgressPercent)
	assert.True(t, enrollment.Completed)
}

func TestRecomputeAllEmptyCourse(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "empty@test.com")
	course := createTestCourse(t, db, 0, 0)
	enroll(t, db, user.ID, course.ID)

	changed, err := tracker.RecomputeAll(course.ID)
	require.NoError(t, err)
	assert.Zero(t, changed, "zero lessons means zero percent, not completion")

	_, err = tracker.RecomputeAll(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCompletionsSingleCertificateJob(t *testing.T) {
	tracker, db := newTestTracker(t)
	user := createTestUser(t, db, "concurrent@test.com")
	course := createTestCourse(t, db, 0, 2)
	enroll(t, db, user.ID, course.ID)
	lessons := courseLessons(t, db, course.ID)

	_, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[0].ID, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.SetLessonCompletion(user.ID, course.ID, lessons[1].ID, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, countJobs(t, db, JobTypeCertificate),
		"racing completions of the last lesson must enqueue one certificate")
}
