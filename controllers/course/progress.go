package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// ProgressController exposes lesson completion tracking.
type ProgressController struct {
	Tracker *services.Tracker
}

// UpdateProgress marks a lesson complete or incomplete for the current user
func (ct *ProgressController) UpdateProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedProgressUpdate").(*struct {
		CourseID  uint `json:"course_id" validate:"required"`
		LessonID  uint `json:"lesson_id" validate:"required"`
		Completed bool `json:"completed"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	enrollment, err := ct.Tracker.SetLessonCompletion(userID, reqData.CourseID, reqData.LessonID, reqData.Completed)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", enrollment)
}

// RecalculateProgress re-derives every enrolled student's percent for a
// course. Admin/instructor operation, used after editing the lesson list.
func (ct *ProgressController) RecalculateProgress(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	changed, err := ct.Tracker.RecomputeAll(uint(courseID))
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress recalculated successfully!", fiber.Map{
		"updated_enrollments": changed,
	})
}

// GetUserProgress gets the user's progress in a course
func (ct *ProgressController) GetUserProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Not enrolled in this course!", nil)
	}

	var progress courseModels.Progress
	database.Database.Db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress)

	var completions []courseModels.LessonCompletion
	database.Database.Db.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&completions)

	completedIDs := make([]uint, len(completions))
	for i, completion := range completions {
		completedIDs[i] = completion.LessonID
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment":             enrollment,
		"completed_lesson_ids":   completedIDs,
		"last_watched_lesson_id": progress.LastWatchedLessonID,
	})
}
