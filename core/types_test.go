package core

import (
	"testing"
	"time"
)

func TestParseUTCTime(t *testing.T) {
	ts, ok := ParseUTCTime("2024-03-01 12:30:00")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ts.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", ts.Location())
	}
	if ts.Hour() != 12 || ts.Minute() != 30 {
		t.Fatalf("unexpected time: %v", ts)
	}

	for _, bad := range []string{"", "   ", "garbage", "2024-03-01T12:30:00Z"} {
		if _, ok := ParseUTCTime(bad); ok {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestFormatUTCTimeRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 15, 42, 0, time.FixedZone("CET", 3600))
	s := FormatUTCTime(now)
	if s != "2024-03-01 08:15:42" {
		t.Fatalf("expected normalized UTC, got %q", s)
	}
	back, ok := ParseUTCTime(s)
	if !ok || !back.Equal(now.Truncate(time.Second)) {
		t.Fatalf("round trip mismatch: %v vs %v", back, now)
	}
}

func TestFormatScore(t *testing.T) {
	cases := map[string]string{
		"1234567":   "1,234,567",
		"1,234,567": "1,234,567",
		"999":       "999",
		"0":         "0",
		"-1234":     "-1,234",
		"12345.0":   "12,345",
		"not-a-num": "not-a-num",
		"":          "",
	}
	for in, want := range cases {
		if got := FormatScore(in); got != want {
			t.Fatalf("FormatScore(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRankValue(t *testing.T) {
	r := ScoreRecord{}
	if _, ok := r.RankValue(); ok {
		t.Fatal("nil rank should report absent")
	}
	v := int64(3)
	r.Rank = &v
	if got, ok := r.RankValue(); !ok || got != 3 {
		t.Fatalf("got %d %v", got, ok)
	}
}
