package i18n

import (
	"strings"
	"testing"
)

func TestNewTranslator(t *testing.T) {
	t.Run("loads the ukrainian catalog", func(t *testing.T) {
		tr, err := NewTranslator(LocalesFS, "uk")
		if err != nil {
			t.Fatalf("NewTranslator() failed: %v", err)
		}
		msg := tr.T("notify.needs_approval", 42, "Заголовок", "linkedin_scraper")
		if !strings.Contains(msg, "№42") || !strings.Contains(msg, "Заголовок") {
			t.Errorf("rendered message = %q", msg)
		}
	})

	t.Run("loads the english catalog", func(t *testing.T) {
		tr, err := NewTranslator(LocalesFS, "en")
		if err != nil {
			t.Fatalf("NewTranslator() failed: %v", err)
		}
		msg := tr.T("notify.published", 7, "Facebook", "https://www.facebook.com/1_2")
		if !strings.Contains(msg, "#7") || !strings.Contains(msg, "https://www.facebook.com/1_2") {
			t.Errorf("rendered message = %q", msg)
		}
	})

	t.Run("unknown language fails", func(t *testing.T) {
		if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
			t.Fatal("expected an error for a missing catalog")
		}
	})

	t.Run("unknown key falls back to the key", func(t *testing.T) {
		tr, err := NewTranslator(LocalesFS, "uk")
		if err != nil {
			t.Fatalf("NewTranslator() failed: %v", err)
		}
		if got := tr.T("no.such.key"); got != "no.such.key" {
			t.Errorf("T() = %q", got)
		}
	})
}
