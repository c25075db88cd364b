package markethours

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCalendar(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write calendar: %v", err)
	}
	return path
}

func TestLoadCalendar(t *testing.T) {
	path := writeCalendar(t, `
allowed_sessions:
  - REGULAR
  - AFTER_HOURS
holidays:
  - "2026-01-01"
  - "2026-05-01"
`)
	cal, err := LoadCalendar(path)
	if err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if len(cal.AllowedSessions) != 2 ||
		cal.AllowedSessions[0] != SessionRegular ||
		cal.AllowedSessions[1] != SessionAfterHours {
		t.Fatalf("AllowedSessions=%v", cal.AllowedSessions)
	}
	if !cal.Holidays.Contains(at(2026, 1, 1, 12, 0)) {
		t.Fatal("2026-01-01 missing from holiday set")
	}
	if cal.Holidays.Contains(at(2026, 1, 2, 12, 0)) {
		t.Fatal("2026-01-02 should not be a holiday")
	}
}

func TestLoadCalendarEmptyPath(t *testing.T) {
	cal, err := LoadCalendar("")
	if err != nil {
		t.Fatalf("LoadCalendar(\"\"): %v", err)
	}
	if len(cal.AllowedSessions) != 0 {
		t.Fatalf("empty path produced sessions: %v", cal.AllowedSessions)
	}
}

func TestLoadCalendarErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown session", "allowed_sessions:\n  - LUNCH\n"},
		{"bad holiday date", "holidays:\n  - not-a-date\n"},
		{"malformed yaml", "allowed_sessions: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCalendar(t, tt.content)
			if _, err := LoadCalendar(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := LoadCalendar(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParseSession(t *testing.T) {
	for _, s := range sessionOrder {
		got, err := ParseSession(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseSession(%s)=(%s,%v)", s, got, err)
		}
	}
	if _, err := ParseSession("OVERNIGHT"); err == nil {
		t.Fatal("expected an error for an unknown session")
	}
}
