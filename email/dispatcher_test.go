package email

import (
	"sync"
	"testing"

	"complaints-service/config"
	"complaints-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingSender) Send(to, subject, text, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

func (s *recordingSender) mails() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail(nil), s.sent...)
}

func newTestDispatcher(queueLen int) (*Dispatcher, *recordingSender) {
	rec := &recordingSender{}
	d := &Dispatcher{
		sender:     rec,
		adminEmail: "complaints-admin@city.test",
		events:     make(chan models.NotificationEvent, queueLen),
		done:       make(chan struct{}),
	}
	return d, rec
}

func TestDispatcherRecipientRouting(t *testing.T) {
	d, rec := newTestDispatcher(8)

	withReporter := models.Complaint{ID: "c-1", Token: "PMC-AAAAAA", ReporterEmail: "citizen@example.com"}
	anonymous := models.Complaint{ID: "c-2", Token: "PMC-BBBBBB"}

	d.Enqueue(models.NotificationEvent{Type: models.EventComplaintCreated, Complaint: withReporter})
	d.Enqueue(models.NotificationEvent{Type: models.EventComplaintAssigned, Complaint: withReporter, Recipient: "worker@workers.test"})
	d.Enqueue(models.NotificationEvent{Type: models.EventComplaintStatusChanged, Complaint: anonymous})

	d.Start()
	d.Stop()

	mails := rec.mails()
	require.Len(t, mails, 3)
	assert.Equal(t, "citizen@example.com", mails[0].To)
	assert.Equal(t, "worker@workers.test", mails[1].To)
	assert.Equal(t, "complaints-admin@city.test", mails[2].To)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d, rec := newTestDispatcher(1)

	c := models.Complaint{ID: "c-1", Token: "PMC-AAAAAA", ReporterEmail: "citizen@example.com"}
	d.Enqueue(models.NotificationEvent{Type: models.EventComplaintCreated, Complaint: c})
	d.Enqueue(models.NotificationEvent{Type: models.EventComplaintStatusChanged, Complaint: c})

	d.Start()
	d.Stop()

	assert.Len(t, rec.mails(), 1)
}

func TestDispatcherSkipsWithoutAnyRecipient(t *testing.T) {
	d, rec := newTestDispatcher(4)
	d.adminEmail = ""

	d.Enqueue(models.NotificationEvent{
		Type:      models.EventComplaintStatusChanged,
		Complaint: models.Complaint{ID: "c-1", Token: "PMC-AAAAAA"},
	})

	d.Start()
	d.Stop()

	assert.Empty(t, rec.mails())
}

func TestBuildMessageCreated(t *testing.T) {
	subject, text, html := buildMessage(models.NotificationEvent{
		Type: models.EventComplaintCreated,
		Complaint: models.Complaint{
			Token:       "PMC-7XK2P9",
			Category:    models.CategoryRoads,
			Description: "Pothole on the main road",
		},
	})

	assert.Equal(t, "Complaint PMC-7XK2P9 received", subject)
	assert.Contains(t, text, "tracking number PMC-7XK2P9")
	assert.Contains(t, text, "Category: roads")
	assert.Contains(t, html, "<p>")
	assert.Contains(t, html, "PMC-7XK2P9")
}

func TestBuildMessageAssignedIncludesNote(t *testing.T) {
	_, text, _ := buildMessage(models.NotificationEvent{
		Type:      models.EventComplaintAssigned,
		Complaint: models.Complaint{Token: "PMC-7XK2P9"},
		Note:      "check before noon",
	})
	assert.Contains(t, text, "Note from the administrator: check before noon")
}

func TestBuildMessageVerifiedIncludesPhotos(t *testing.T) {
	subject, text, _ := buildMessage(models.NotificationEvent{
		Type:      models.EventComplaintVerified,
		Complaint: models.Complaint{Token: "PMC-7XK2P9"},
		PhotoURLs: []string{"https://blobs.test/a.jpg", "https://blobs.test/b.jpg"},
	})
	assert.Equal(t, "Complaint PMC-7XK2P9 resolved", subject)
	assert.Contains(t, text, "https://blobs.test/a.jpg")
	assert.Contains(t, text, "https://blobs.test/b.jpg")
}

func TestNewSendGridSenderDryRun(t *testing.T) {
	sender := NewSendGridSender(&config.Config{EmailDryRun: true})
	_, ok := sender.(*dryRunSender)
	assert.True(t, ok)
	assert.NoError(t, sender.Send("a@b.c", "s", "t", "h"))
}
