package mailer

import (
	"strings"
	"testing"
)

func TestRenderTemplateSubstitutesData(t *testing.T) {
	body, err := renderTemplate("coupon", map[string]string{"code": "SAVE-ABC123"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(body, "SAVE-ABC123") {
		t.Fatalf("expected the coupon code in the body, got %q", body)
	}
}

func TestRenderTemplateUnknownName(t *testing.T) {
	if _, err := renderTemplate("no_such_template", nil); err == nil {
		t.Fatal("expected an error for an unknown template")
	}
}

func TestAllTemplatesParse(t *testing.T) {
	data := map[string]string{
		"username": "u", "business": "b", "name": "n", "from": "f",
		"code": "c", "subscription_id": "s", "amount": "a", "transaction_id": "t",
	}
	for name := range templates {
		if _, err := renderTemplate(name, data); err != nil {
			t.Fatalf("template %q failed to render: %v", name, err)
		}
	}
}
