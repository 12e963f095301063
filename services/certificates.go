package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Issuer creates completion certificates: renders the document, stores it
// through the blob collaborator and persists the Certificate row. Issue is
// idempotent, so the job queue, the scheduler and the manual admin retry
// can all safely invoke it for the same pair.
type Issuer struct {
	db    *gorm.DB
	blobs BlobStore
	jobs  *Jobs
}

func NewIssuer(db *gorm.DB, blobs BlobStore, jobs *Jobs) *Issuer {
	return &Issuer{db: db, blobs: blobs, jobs: jobs}
}

var certificateTmpl = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<style>
		body { font-family: Georgia, 'Times New Roman', serif; background: #FDFBF7; margin: 0; padding: 60px; }
		.certificate { max-width: 800px; margin: auto; border: 8px double #1B2A4A; padding: 60px; text-align: center; background: #FFFFFF; }
		h1 { font-size: 36px; color: #1B2A4A; letter-spacing: 2px; margin-bottom: 0; }
		.subtitle { color: #3FA796; font-size: 14px; letter-spacing: 3px; text-transform: uppercase; }
		.name { font-size: 32px; color: #1B2A4A; margin: 30px 0 10px; border-bottom: 1px solid #E0E0E0; display: inline-block; padding: 0 40px 8px; }
		.course { font-size: 22px; color: #333333; margin: 20px 0; }
		.meta { margin-top: 40px; font-size: 13px; color: #666666; }
	</style>
</head>
<body>
	<div class="certificate">
		<div class="subtitle">Certificate of Completion</div>
		<h1>LEARNHUB</h1>
		<p>This certifies that</p>
		<div class="name">{{.StudentName}}</div>
		<p>has successfully completed the course</p>
		<div class="course">{{.CourseTitle}}</div>
		<div class="meta">
			Certificate No: {{.Number}}<br>
			Issued on {{.IssuedAt}}
		</div>
	</div>
</body>
</html>
`))

// Issue creates the certificate for a completed (student, course) pair.
// Returns the existing certificate without side effects if one is already
// present.
func (i *Issuer) Issue(userID, courseID uint) (*courseModels.Certificate, error) {
	var existing courseModels.Certificate
	err := i.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var enrollment courseModels.Enrollment
	if err := i.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return nil, Errorf(ErrNotFound, "enrollment not found")
	}
	if !enrollment.Completed {
		return nil, Errorf(ErrForbidden, "course not completed")
	}

	var user models.User
	if err := i.db.First(&user, userID).Error; err != nil {
		return nil, Errorf(ErrNotFound, "user not found")
	}
	var course courseModels.Course
	if err := i.db.First(&course, courseID).Error; err != nil {
		return nil, Errorf(ErrNotFound, "course not found")
	}

	issuedAt := time.Now()
	number := "CERT-" + uuid.NewString()

	var rendered bytes.Buffer
	data := map[string]string{
		"StudentName": user.Name,
		"CourseTitle": course.Title,
		"Number":      number,
		"IssuedAt":    issuedAt.Format("January 2, 2006"),
	}
	if err := certificateTmpl.Execute(&rendered, data); err != nil {
		return nil, Errorf(ErrDependency, "certificate rendering failed")
	}

	key := fmt.Sprintf("certificates/%d-%d-%d.html", userID, courseID, issuedAt.Unix())
	url, err := i.blobs.Put(key, rendered.Bytes(), true)
	if err != nil {
		return nil, Errorf(ErrDependency, "certificate upload failed")
	}

	certificate := courseModels.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateURL:    url,
		CertificateNumber: number,
		IssuedAt:          issuedAt,
	}
	if err := i.db.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent issue won; the stored row is the certificate.
			if err := i.db.Where("user_id = ? AND course_id = ?", userID, courseID).
				First(&certificate).Error; err != nil {
				return nil, err
			}
			return &certificate, nil
		}
		return nil, err
	}

	if err := i.jobs.Enqueue(JobTypeEmail, certificateIssuedEmail(user.Email, user.Name, course.Title, url)); err != nil {
		log.Printf("[CERTIFICATES] Failed to enqueue certificate email for user %d: %v", userID, err)
	}
	return &certificate, nil
}
