package persona

import (
	"strings"
	"testing"
)

func TestSystemPromptCarriesCoreDirectives(t *testing.T) {
	for _, mode := range Modes() {
		prompt := SystemPrompt(mode)
		if !strings.Contains(prompt, "CORE DIRECTIVES") {
			t.Fatalf("mode %q prompt missing base instructions", mode)
		}
		if !strings.Contains(prompt, "mermaid") {
			t.Fatalf("mode %q prompt missing diagram directive", mode)
		}
	}
}

func TestSystemPromptUnknownModeFallsBack(t *testing.T) {
	if SystemPrompt("astronaut") != SystemPrompt(DefaultMode) {
		t.Fatalf("unknown mode should use the default persona")
	}
}

func TestValidIsCaseInsensitive(t *testing.T) {
	if !Valid("  Mother ") {
		t.Fatalf("expected trimmed, case-insensitive match")
	}
	if Valid("uncle") {
		t.Fatalf("unexpected match for unknown persona")
	}
}
