package utils

import (
	"fmt"
	"log"

	"lms/config"
	"lms/services"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional mail through SendGrid. Constructed once in
// main and plugged into the job queue; nothing else talks to SendGrid.
type Mailer struct {
	client *sendgrid.Client
	sender string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		client: sendgrid.NewSendClient(cfg.SendGridKey),
		sender: cfg.EmailSender,
	}
}

// Send delivers a single HTML message.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	from := mail.NewEmail("LearnHub", m.sender)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), "", htmlBody)

	resp, err := m.client.Send(message)
	if err != nil {
		log.Printf("[MAILER] Error sending email to %s: %v", to, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("[MAILER] SendGrid rejected email to %s: %d %s", to, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid responded %d", resp.StatusCode)
	}

	log.Printf("[MAILER] Email sent to %s: %s", to, subject)
	return nil
}

// SendJob is the job-queue handler for email.send payloads.
func (m *Mailer) SendJob(payload []byte) error {
	job, err := decodeEmailJob(payload)
	if err != nil {
		return err
	}
	return m.Send(job.To, job.Subject, job.HTML)
}

func decodeEmailJob(payload []byte) (*services.EmailJob, error) {
	var job services.EmailJob
	if err := unmarshalPayload(payload, &job); err != nil {
		return nil, err
	}
	if job.To == "" {
		return nil, fmt.Errorf("email job has no recipient")
	}
	return &job, nil
}
