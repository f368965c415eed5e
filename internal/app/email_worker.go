/**
 * @description
 * Email worker: consumes email.* events from the topic exchange and hands
 * them to the SMTP mailer. Malformed payloads are acknowledged and dropped;
 * delivery failures are requeued by the consumer.
 */
package app

import (
	"encoding/json"
	"log"

	"github.com/vyaparlink/directory-server/internal/domain"
)

const (
	// EmailQueueExchange is the exchange the email queue binds to.
	EmailQueueExchange = domain.EventsExchange
	// EmailQueueName is the durable queue the email worker consumes.
	EmailQueueName = "directory.emails"
)

// Mailer sends one rendered email.
type Mailer interface {
	Send(recipient, subject, templateName string, data map[string]string) error
}

// EmailWorker handles email events from the broker.
type EmailWorker struct {
	mailer     Mailer
	adminEmail string
	metrics    EmailMetrics
}

// EmailMetrics counts email deliveries for the metrics endpoint.
type EmailMetrics interface {
	EmailDispatched(outcome string)
}

// NewEmailWorker creates a new email worker. Staff-facing events with no
// recipient are delivered to adminEmail.
func NewEmailWorker(mailer Mailer, adminEmail string, metrics EmailMetrics) *EmailWorker {
	return &EmailWorker{mailer: mailer, adminEmail: adminEmail, metrics: metrics}
}

// Bindings returns the routing-key handler map for the consumer.
func (w *EmailWorker) Bindings() map[string]func([]byte) bool {
	handler := w.HandleMessage
	return map[string]func([]byte) bool{
		domain.EmailWelcomeKey:         handler,
		domain.EmailEnquiryAckKey:      handler,
		domain.EmailEnquiryOwnerKey:    handler,
		domain.EmailReviewAckKey:       handler,
		domain.EmailReviewVisibleKey:   handler,
		domain.EmailCouponKey:          handler,
		domain.EmailBusinessLiveKey:    handler,
		domain.EmailProofUploadedKey:   handler,
		domain.EmailPayoutRequestedKey: handler,
	}
}

// HandleMessage delivers one email event. It returns true to ack the message
// and false to requeue it.
func (w *EmailWorker) HandleMessage(body []byte) bool {
	var event domain.EmailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("email-worker: failed to unmarshal payload: %v", err)
		return true
	}

	recipient := event.To
	if recipient == "" {
		recipient = w.adminEmail
	}
	if recipient == "" {
		log.Printf("email-worker: no recipient for template %s; dropping", event.Template)
		w.count("dropped")
		return true
	}

	if err := w.mailer.Send(recipient, event.Subject, event.Template, event.Data); err != nil {
		log.Printf("email-worker: delivery to %s failed: %v", recipient, err)
		w.count("failed")
		return false
	}

	w.count("sent")
	return true
}

func (w *EmailWorker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.EmailDispatched(outcome)
	}
}
