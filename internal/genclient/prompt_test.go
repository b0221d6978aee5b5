package genclient

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("new coffee blend launch", "vibrant", "en")
	if !strings.HasPrefix(got, "Vibrant ") {
		t.Fatalf("prompt should lead with title-cased style, got %q", got)
	}
	if !strings.Contains(got, "new coffee blend launch") {
		t.Fatalf("prompt missing content: %q", got)
	}
}

func TestBuildPromptEmptyContent(t *testing.T) {
	got := BuildPrompt("   ", "", "en")
	if !strings.HasPrefix(got, "Realistic ") {
		t.Fatalf("empty style should fall back to default, got %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Fatalf("empty content should use the standalone template, got %q", got)
	}
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	long := strings.Repeat("a", maxPromptContentLen+50)
	got := BuildPrompt(long, "realistic", "en")
	if strings.Contains(got, strings.Repeat("a", maxPromptContentLen+1)) {
		t.Fatal("content not truncated")
	}
}

func TestBuildPromptBadLocaleFallsBack(t *testing.T) {
	got := BuildPrompt("x", "vibrant", "not-a-locale")
	if !strings.HasPrefix(got, "Vibrant ") {
		t.Fatalf("bad locale should fall back to English casing, got %q", got)
	}
}
