package image

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("carries title and body into the brief", func(t *testing.T) {
		p := BuildPrompt("AI у маркетингу", "Стаття про автоматизацію контенту.")
		if !strings.Contains(p, "AI у маркетингу") {
			t.Errorf("prompt missing title: %q", p)
		}
		if !strings.Contains(p, "автоматизацію") {
			t.Errorf("prompt missing body context: %q", p)
		}
	})

	t.Run("truncates long bodies without splitting runes", func(t *testing.T) {
		body := strings.Repeat("ї", 1000)
		p := BuildPrompt("t", body)
		if strings.Contains(p, strings.Repeat("ї", 401)) {
			t.Error("body was not truncated")
		}
		if strings.Contains(p, "�") {
			t.Error("truncation split a multi-byte rune")
		}
	})
}
