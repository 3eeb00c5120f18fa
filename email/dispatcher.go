// Package email dispatches best-effort notification mails for complaint
// lifecycle events. Dispatch is decoupled from the triggering request by a
// bounded in-process queue; transport failures are logged, never propagated.
package email

import (
	"sync"

	"complaints-service/config"
	"complaints-service/models"

	"github.com/apex/log"
)

// Dispatcher consumes notification events from a bounded queue and sends
// one email per event.
type Dispatcher struct {
	sender     Sender
	adminEmail string

	events chan models.NotificationEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the configured transport and
// queue depth.
func NewDispatcher(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		sender:     NewSendGridSender(cfg),
		adminEmail: cfg.AdminEmail,
		events:     make(chan models.NotificationEvent, cfg.NotifyQueueLen),
		done:       make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains the queue and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	close(d.done)
	d.wg.Wait()
}

// Enqueue hands an event to the dispatcher without blocking the caller.
// When the queue is full the event is dropped with a warning; notification
// delivery is best-effort.
func (d *Dispatcher) Enqueue(event models.NotificationEvent) {
	select {
	case d.events <- event:
	default:
		log.Warnf("Notification queue full, dropping %s for complaint %s", event.Type, event.Complaint.ID)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.events:
			d.deliver(event)
		case <-d.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case event := <-d.events:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver sends one event. The recipient is the explicit override when set,
// else the complaint's citizen email, else the admin distribution list --
// never more than one of these.
func (d *Dispatcher) deliver(event models.NotificationEvent) {
	to := event.Recipient
	if to == "" {
		to = event.Complaint.ReporterEmail
	}
	if to == "" {
		to = d.adminEmail
	}
	if to == "" {
		log.Warnf("No recipient for %s on complaint %s, skipping", event.Type, event.Complaint.ID)
		return
	}

	subject, text, html := buildMessage(event)
	if err := d.sender.Send(to, subject, text, html); err != nil {
		log.Warnf("Error sending %s mail to %s: %v", event.Type, to, err)
		return
	}
	log.Infof("Dispatched %s mail for complaint %s", event.Type, event.Complaint.ID)
}
