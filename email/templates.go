package email

import (
	"fmt"
	"strings"

	"complaints-service/models"
)

// buildMessage renders subject, plain text and HTML bodies for an event.
func buildMessage(event models.NotificationEvent) (subject, text, html string) {
	c := event.Complaint

	switch event.Type {
	case models.EventComplaintCreated:
		subject = fmt.Sprintf("Complaint %s received", c.Token)
		text = fmt.Sprintf(`Hello,

Your complaint has been received and registered under tracking number %s.

Category: %s
Description: %s

You can check the status of your complaint at any time using the tracking
number above.

Best regards,
The Civic Complaints Team`, c.Token, c.Category, c.Description)

	case models.EventComplaintAssigned:
		subject = fmt.Sprintf("Complaint %s assigned to you", c.Token)
		note := ""
		if event.Note != "" {
			note = "\nNote from the administrator: " + event.Note + "\n"
		}
		text = fmt.Sprintf(`Hello,

Complaint %s has been assigned to you.

Category: %s
Location: %s
Description: %s
%s
Please submit a resolution report once the issue is addressed.

Best regards,
The Civic Complaints Team`, c.Token, c.Category, c.LocationText, c.Description, note)

	case models.EventComplaintStatusChanged:
		subject = fmt.Sprintf("Complaint %s status update", c.Token)
		text = fmt.Sprintf(`Hello,

The status of your complaint %s has changed to: %s.

Best regards,
The Civic Complaints Team`, c.Token, c.Status)

	case models.EventComplaintVerified:
		photos := ""
		if len(event.PhotoURLs) > 0 {
			photos = "\nResolution photos:\n" + strings.Join(event.PhotoURLs, "\n") + "\n"
		}
		note := ""
		if event.Note != "" {
			note = "\nResolution notes: " + event.Note + "\n"
		}
		subject = fmt.Sprintf("Complaint %s resolved", c.Token)
		text = fmt.Sprintf(`Hello,

Good news: your complaint %s has been resolved and verified by an
administrator.
%s%s
Thank you for helping improve your city.

Best regards,
The Civic Complaints Team`, c.Token, note, photos)

	case models.EventComplaintRejected:
		note := ""
		if event.Note != "" {
			note = "\nReviewer notes: " + event.Note + "\n"
		}
		subject = fmt.Sprintf("Report on complaint %s needs more work", c.Token)
		text = fmt.Sprintf(`Hello,

Your resolution report for complaint %s was not accepted and the complaint
has been reopened.
%s
Please revisit the issue and submit an updated report.

Best regards,
The Civic Complaints Team`, c.Token, note)

	case models.EventComplaintSubmittedPortal:
		subject = fmt.Sprintf("Complaint %s submitted to the municipal portal", c.Token)
		text = fmt.Sprintf(`Hello,

Your complaint %s has been submitted to the municipal portal for official
processing.

Best regards,
The Civic Complaints Team`, c.Token)

	default:
		subject = fmt.Sprintf("Complaint %s update", c.Token)
		text = fmt.Sprintf("Your complaint %s has been updated.", c.Token)
	}

	html = renderHTML(subject, text)
	return subject, text, html
}

// renderHTML wraps the plain text body in a minimal HTML shell.
func renderHTML(title, body string) string {
	paragraphs := strings.Split(body, "\n\n")
	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString("    <p>")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(p), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s</title>
</head>
<body>
%s</body>
</html>`, title, b.String())
}
