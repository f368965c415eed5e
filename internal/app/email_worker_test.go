package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vyaparlink/directory-server/internal/domain"
)

type mailerStub struct {
	fail bool
	sent []string
}

func (m *mailerStub) Send(recipient, subject, templateName string, data map[string]string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, recipient)
	return nil
}

func emailBody(t *testing.T, event domain.EmailEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return body
}

func TestEmailWorkerSendsToRecipient(t *testing.T) {
	mailer := &mailerStub{}
	worker := NewEmailWorker(mailer, "admin@example.com", nil)

	ack := worker.HandleMessage(emailBody(t, domain.EmailEvent{
		To:       "owner@example.com",
		Subject:  "Your listing is live",
		Template: "business_live",
	}))
	if !ack {
		t.Fatal("expected the message to be acked")
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "owner@example.com" {
		t.Fatalf("expected delivery to owner@example.com, got %v", mailer.sent)
	}
}

func TestEmailWorkerFallsBackToAdminInbox(t *testing.T) {
	mailer := &mailerStub{}
	worker := NewEmailWorker(mailer, "admin@example.com", nil)

	worker.HandleMessage(emailBody(t, domain.EmailEvent{
		Subject:  "New payment proof awaiting verification",
		Template: "payment_proof_uploaded",
	}))
	if len(mailer.sent) != 1 || mailer.sent[0] != "admin@example.com" {
		t.Fatalf("expected delivery to the admin inbox, got %v", mailer.sent)
	}
}

func TestEmailWorkerDropsWithoutAnyRecipient(t *testing.T) {
	mailer := &mailerStub{}
	worker := NewEmailWorker(mailer, "", nil)

	ack := worker.HandleMessage(emailBody(t, domain.EmailEvent{Template: "payment_proof_uploaded"}))
	if !ack {
		t.Fatal("expected an unroutable message to be acked and dropped")
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no delivery, got %v", mailer.sent)
	}
}

func TestEmailWorkerRequeuesOnDeliveryFailure(t *testing.T) {
	worker := NewEmailWorker(&mailerStub{fail: true}, "admin@example.com", nil)

	ack := worker.HandleMessage(emailBody(t, domain.EmailEvent{
		To:       "owner@example.com",
		Template: "welcome",
	}))
	if ack {
		t.Fatal("expected a failed delivery to be requeued")
	}
}

func TestEmailWorkerAcksMalformedPayloads(t *testing.T) {
	worker := NewEmailWorker(&mailerStub{}, "admin@example.com", nil)

	if !worker.HandleMessage([]byte("not json")) {
		t.Fatal("expected a malformed payload to be acked")
	}
}

func TestRetryDelayBacksOffAndCaps(t *testing.T) {
	if got := retryDelaySeconds(0); got != 1 {
		t.Fatalf("expected 1s for a first attempt, got %d", got)
	}
	if got := retryDelaySeconds(3); got != 8 {
		t.Fatalf("expected 8s after three attempts, got %d", got)
	}
	if got := retryDelaySeconds(20); got != 256 {
		t.Fatalf("expected the capped delay, got %d", got)
	}
}
