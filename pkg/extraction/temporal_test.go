package extraction

import (
	"testing"
	"time"
)

func TestExtractTemporalPhrases_FindsEnglishAndVietnamese(t *testing.T) {
	text := "I saw him 3 days ago, and hôm qua tôi đã đi học."
	phrases := ExtractTemporalPhrases(text)
	if len(phrases) < 2 {
		t.Fatalf("expected at least 2 temporal phrases, got %v", phrases)
	}
}

func TestNormalizeTemporalPhrase_RelativeDaysAgo(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got, ok := NormalizeTemporalPhrase("3 days ago", now)
	if !ok {
		t.Fatal("expected phrase to resolve")
	}
	want := now.Add(-3 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeTemporalPhrase_NamedYesterday(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got, ok := NormalizeTemporalPhrase("yesterday", now)
	if !ok {
		t.Fatal("expected phrase to resolve")
	}
	if got.Day() != 30 {
		t.Fatalf("expected day 30, got %d", got.Day())
	}
}

func TestCanonicalTemporalContent_UnresolvedFallsBackToLowercasedPhrase(t *testing.T) {
	now := time.Now()
	got := CanonicalTemporalContent("  Spring Festival  ", now)
	if got != "spring festival" {
		t.Fatalf("got %q", got)
	}
}
