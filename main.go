package main

import (
	"encoding/json"
	"log"
	"time"

	"lms/config"
	controllers "lms/controllers/course"
	storeControllers "lms/controllers/store"
	"lms/database"
	authRoutes "lms/routers/authRoutes"
	courseRoutes "lms/routers/courseRoutes"
	storeRoutes "lms/routers/storeRoutes"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()
	db := database.Database.Db

	// Blob storage backend. Local keeps signing in-process, remote talks
	// to the storage API.
	var blobs services.BlobStore
	var localFiles *utils.LocalBlobStore
	if config.AppConfig.BlobMode == "remote" {
		blobs = utils.NewRemoteBlobStore(config.AppConfig)
	} else {
		localFiles = utils.NewLocalBlobStore(config.AppConfig)
		blobs = localFiles
	}

	jobs := services.NewJobs(db)
	granter := services.NewGranter(db, jobs)
	ledger := services.NewLedger(db, granter)
	tracker := services.NewTracker(db, jobs)
	issuer := services.NewIssuer(db, blobs, jobs)
	broker := services.NewBroker(db, blobs, time.Duration(config.AppConfig.SignedURLTTLMinutes)*time.Minute)

	mailer := utils.NewMailer(config.AppConfig)
	jobs.Register(services.JobTypeEmail, mailer.SendJob)
	jobs.Register(services.JobTypeCertificate, func(payload []byte) error {
		var job services.CertificateJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return err
		}
		_, err := issuer.Issue(job.UserID, job.CourseID)
		return err
	})

	scheduler := utils.InitializeScheduler(db, jobs)
	defer scheduler.Stop()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve public uploads directly from disk
	app.Static("/uploads", config.AppConfig.BlobDir)

	adminCourses := &controllers.AdminCourseController{Tracker: tracker}
	progress := &controllers.ProgressController{Tracker: tracker}
	certs := &controllers.CertificateController{Issuer: issuer}
	orders := &storeControllers.OrderController{Ledger: ledger}
	downloads := &storeControllers.DownloadController{Broker: broker, Files: localFiles}
	products := &storeControllers.ProductController{Blobs: blobs}

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app, progress, certs)
	courseRoutes.SetupAdminCourseRoutes(app, adminCourses, progress, certs)
	storeRoutes.SetupStoreRoutes(app, orders, downloads, products)

	// Signed private file delivery
	app.Get("/files/*", downloads.ServeFile)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
