package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up all admin course management routes
func SetupAdminCourseRoutes(app *fiber.App, admin *controllers.AdminCourseController, progress *controllers.ProgressController, certs *controllers.CertificateController) {
	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"))

	// Course CRUD
	adminGroup.Post("/create", validators.CreateCourse(), admin.CreateCourse)
	adminGroup.Put("/:id", validators.CourseID(), validators.UpdateCourse(), admin.UpdateCourse)
	adminGroup.Post("/:id/publish", validators.CourseID(), validators.Publish(), admin.PublishCourse)

	// Lesson Management
	adminGroup.Post("/:id/lesson", validators.CourseID(), validators.AddLesson(), admin.AddLesson)
	adminGroup.Delete("/:id/lesson/:lessonId", validators.LessonID(), admin.DeleteLesson)

	// Progress & Certificates
	adminGroup.Post("/:id/recalculate", validators.CourseID(), progress.RecalculateProgress)

	certGroup := app.Group("/admin/certificate", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"))
	certGroup.Post("/issue", validators.CertificateRetry(), certs.RetryIssue)
}
