package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the learner-facing course, progress and
// certificate routes.
func SetupCourseRoutes(app *fiber.App, progress *controllers.ProgressController, certs *controllers.CertificateController) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	courseGroup.Get("/:id", middleware.JWTMiddleware, validators.CourseID(), controllers.GetCourseDetails)

	progressGroup := app.Group("/progress")
	progressGroup.Post("/lesson", middleware.JWTMiddleware, validators.ProgressUpdate(), progress.UpdateProgress)
	progressGroup.Get("/course/:id", middleware.JWTMiddleware, validators.CourseID(), progress.GetUserProgress)

	enrollmentGroup := app.Group("/enrollment")
	enrollmentGroup.Get("/list", middleware.JWTMiddleware, controllers.GetUserEnrollmentsList)

	certGroup := app.Group("/certificate")
	certGroup.Get("/list", middleware.JWTMiddleware, certs.GetUserCertificates)
}
