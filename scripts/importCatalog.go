package main

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"strings"

	"lms/config"
	"lms/database"
	courseModels "lms/models/course"
)

// Bulk-imports courses from Catalog.csv. Expected columns:
// title, description, author, price, duration, lesson titles (| separated)
func main() {
	config.LoadConfig()
	database.ConnectDb()

	file, err := os.Open("Catalog.csv")
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV file: %v", err)
	}

	imported := 0
	for i, record := range records {
		if i == 0 {
			// Skip header row
			continue
		}
		if len(record) < 6 {
			log.Printf("Skipping row %d: expected 6 columns, got %d", i+1, len(record))
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil || price < 0 {
			log.Printf("Skipping row %d: invalid price %q", i+1, record[3])
			continue
		}
		duration, _ := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)

		title := strings.TrimSpace(record[0])
		var existing courseModels.Course
		if err := database.Database.Db.Where("title = ? AND is_deleted = ?", title, false).
			First(&existing).Error; err == nil {
			log.Printf("Skipping row %d: course %q already exists", i+1, title)
			continue
		}

		course := courseModels.Course{
			Title:       title,
			Description: strings.TrimSpace(record[1]),
			Author:      strings.TrimSpace(record[2]),
			Price:       price,
			Duration:    duration,
			Status:      "DRAFT",
		}
		if err := database.Database.Db.Create(&course).Error; err != nil {
			log.Printf("Failed to create course from row %d: %v", i+1, err)
			continue
		}

		for j, lessonTitle := range strings.Split(record[5], "|") {
			lessonTitle = strings.TrimSpace(lessonTitle)
			if lessonTitle == "" {
				continue
			}
			lesson := courseModels.Lesson{
				CourseID:    course.ID,
				Title:       lessonTitle,
				ContentType: "TEXT",
				OrderIndex:  j,
				IsPublished: true,
			}
			if err := database.Database.Db.Create(&lesson).Error; err != nil {
				log.Printf("Failed to create lesson %q for course %q: %v", lessonTitle, title, err)
			}
		}
		imported++
	}

	log.Printf("Import complete: %d course(s) created", imported)
}
