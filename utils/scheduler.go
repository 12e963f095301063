package utils

import (
	"log"
	"time"

	storeModels "lms/models/store"
	"lms/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// InitializeScheduler starts the background cron: re-drives pending jobs
// (failed emails, certificate issuance) every minute and reports expired
// download tokens daily.
func InitializeScheduler(db *gorm.DB, jobs *services.Jobs) *cron.Cron {
	log.Println("[SCHEDULER] Initializing scheduler...")

	c := cron.New()

	c.AddFunc("* * * * *", func() {
		if ran := jobs.RunPending(); ran > 0 {
			log.Printf("[SCHEDULER] Re-drove %d pending jobs", ran)
		}
	})

	// Daily at 9 AM: operator visibility into expired download tokens.
	c.AddFunc("0 9 * * *", func() {
		ReportExpiredTokens(db)
	})

	c.Start()
	log.Println("[SCHEDULER] Scheduler started")
	return c
}

// ReportExpiredTokens logs how many download tokens have passed expiry with
// unused quota. The broker enforces expiry on its own; this is visibility
// only.
func ReportExpiredTokens(db *gorm.DB) {
	var count int64
	if err := db.Model(&storeModels.DownloadToken{}).
		Where("expires_at < ? AND downloads_used < max_downloads", time.Now()).
		Count(&count).Error; err != nil {
		log.Printf("[SCHEDULER] Error counting expired tokens: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[SCHEDULER] %d download tokens expired with unused quota", count)
	}
}
