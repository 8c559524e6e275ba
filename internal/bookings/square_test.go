package bookings

import (
	"strings"
	"testing"
)

func TestSummarizeSlots(t *testing.T) {
	out := summarizeSlots(nil, 7)
	if !strings.Contains(out, "No open booking slots") {
		t.Errorf("empty summary = %q", out)
	}

	out = summarizeSlots([]slot{
		{StartAt: "2026-08-31T17:00:00Z"},
		{StartAt: "2026-08-31T18:00:00Z"},
		{StartAt: "2026-09-01T15:30:00Z"},
	}, 7)
	if !strings.Contains(out, "Found 3 open slots") {
		t.Errorf("summary = %q", out)
	}
	if !strings.Contains(out, "Monday, August 31") || !strings.Contains(out, "Tuesday, September 1") {
		t.Errorf("days missing from summary: %q", out)
	}
	if !strings.Contains(out, "5:00 PM") || !strings.Contains(out, "3:30 PM") {
		t.Errorf("times missing from summary: %q", out)
	}
}

func TestSummarizeSlotsSkipsMalformed(t *testing.T) {
	out := summarizeSlots([]slot{{StartAt: "garbage"}, {StartAt: "2026-09-01T15:00:00Z"}}, 3)
	if !strings.Contains(out, "3:00 PM") {
		t.Errorf("valid slot dropped: %q", out)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in             string
		given, family string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada", "Ada", "Customer"},
		{"", "Guest", "Customer"},
		{"Mary Jane Watson", "Mary", "Jane Watson"},
	}
	for _, c := range cases {
		given, family := splitName(c.in)
		if given != c.given || family != c.family {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", c.in, given, family, c.given, c.family)
		}
	}
}
