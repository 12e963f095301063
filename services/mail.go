package services

import "fmt"

// HTML wrapper shared by all outgoing mail.
func emailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1B2A4A; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B2A4A; line-height: 1.6; }
			.content h2 { color: #1B2A4A; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #3FA796; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3FA796; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LEARNHUB</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 LearnHub. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// purchaseConfirmationEmail renders the post-payment confirmation message.
func purchaseConfirmationEmail(to, name, itemTitle string, amount float64) EmailJob {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your payment of <strong>%.2f</strong> for <strong>%s</strong> has been received.</p>
		<p>Your access is now active. Head to your dashboard to get started.</p>
	`, name, amount, itemTitle)

	return EmailJob{
		To:      to,
		Subject: "Purchase Confirmed: " + itemTitle,
		HTML:    emailTemplate("Payment Received", body),
	}
}

// enrollmentEmail renders the welcome message for a new course enrollment.
func enrollmentEmail(to, name, courseTitle string) EmailJob {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You are now enrolled in <strong>%s</strong>.</p>
		<div class="info-box">
			Track your progress and complete all lessons to earn your certificate.
		</div>
		<p>Happy learning!</p>
	`, name, courseTitle)

	return EmailJob{
		To:      to,
		Subject: "Enrollment Confirmed: " + courseTitle,
		HTML:    emailTemplate("Welcome to the Course", body),
	}
}

// downloadsReadyEmail renders the message sent when download tokens are minted.
func downloadsReadyEmail(to, name string, itemCount int) EmailJob {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your purchase of %d item(s) is ready to download.</p>
		<div class="info-box">
			Download links are valid for 7 days, with up to 5 downloads per item.
		</div>
		<a href="#" class="btn">Go to Downloads</a>
	`, name, itemCount)

	return EmailJob{
		To:      to,
		Subject: "Your Downloads Are Ready",
		HTML:    emailTemplate("Downloads Ready", body),
	}
}

// certificateIssuedEmail renders the certificate notification.
func certificateIssuedEmail(to, name, courseTitle, certificateURL string) EmailJob {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong>.</p>
		<p>Your certificate is ready:</p>
		<a href="%s" class="btn">View Certificate</a>
	`, name, courseTitle, certificateURL)

	return EmailJob{
		To:      to,
		Subject: "Certificate Issued: " + courseTitle,
		HTML:    emailTemplate("Course Completed", body),
	}
}
