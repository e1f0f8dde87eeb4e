package styles

import (
	"testing"

	"opinionpointer/internal/domain/models"
)

func TestTextClassForBackgroundDefault(t *testing.T) {
	got := TextClassForBackground("bg-purple-999")
	if got != "text-gray-900" {
		t.Fatalf("expected default text-gray-900, got %q", got)
	}
}

func TestTextClassForBackgroundKnown(t *testing.T) {
	got := TextClassForBackground("bg-gray-900")
	if got != "text-white" {
		t.Fatalf("unexpected class %q", got)
	}
}

func TestSentimentBadgeClassUnknown(t *testing.T) {
	got := SentimentBadgeClass(models.SentimentLevel("sideways"))
	if got != SentimentBadgeClass(models.SentimentNeutral) {
		t.Fatalf("expected neutral badge fallback, got %q", got)
	}
}

func TestStatusBadgeClass(t *testing.T) {
	cases := map[string]string{
		models.StatusHealthy:   "bg-green-100 text-green-800",
		models.StatusUnhealthy: "bg-red-100 text-red-800",
		"bogus":                "bg-gray-100 text-gray-600",
	}
	for status, want := range cases {
		if got := StatusBadgeClass(status); got != want {
			t.Fatalf("status %q: expected %q, got %q", status, want, got)
		}
	}
}

func TestTextSizeClassDefault(t *testing.T) {
	if got := TextSizeClass("xxl"); got != "text-base" {
		t.Fatalf("expected text-base, got %q", got)
	}
}

func TestLinkClassDefault(t *testing.T) {
	if got := LinkClass("spinning"); got != LinkClass("default") {
		t.Fatalf("expected default link classes, got %q", got)
	}
}
