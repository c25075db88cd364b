package markethours

import (
	"testing"
	"time"
)

// at builds a time on the given weekday-bearing date.
func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestIsWithinSessionBoundaries(t *testing.T) {
	var p Policy
	// Monday 2026-03-02.
	tests := []struct {
		name    string
		t       time.Time
		session TradingSession
		want    bool
	}{
		{"regular start inclusive", at(2026, 3, 2, 9, 0), SessionRegular, true},
		{"regular end inclusive", at(2026, 3, 2, 15, 30), SessionRegular, true},
		{"one minute before open", at(2026, 3, 2, 8, 59), SessionRegular, false},
		{"one minute after close", at(2026, 3, 2, 15, 31), SessionRegular, false},
		{"midday", at(2026, 3, 2, 12, 0), SessionRegular, true},
		{"pre-market start", at(2026, 3, 2, 8, 30), SessionPreMarket, true},
		{"pre-market end", at(2026, 3, 2, 8, 40), SessionPreMarket, true},
		{"pre-market after end", at(2026, 3, 2, 8, 41), SessionPreMarket, false},
		{"closing auction", at(2026, 3, 2, 15, 50), SessionAfterHoursClosing, true},
		{"after hours end", at(2026, 3, 2, 18, 0), SessionAfterHours, true},
		{"after hours past end", at(2026, 3, 2, 18, 1), SessionAfterHours, false},
		{"unknown session", at(2026, 3, 2, 12, 0), TradingSession("LUNCH"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsWithinSession(tt.t, tt.session); got != tt.want {
				t.Fatalf("IsWithinSession(%v, %s)=%v, want %v", tt.t, tt.session, got, tt.want)
			}
		})
	}
}

func TestCurrentSession(t *testing.T) {
	var p Policy
	tests := []struct {
		name   string
		t      time.Time
		want   TradingSession
		wantOK bool
	}{
		{"regular hours", at(2026, 3, 2, 10, 0), SessionRegular, true},
		{"pre-market", at(2026, 3, 2, 8, 35), SessionPreMarket, true},
		// 16:00 belongs to both the closing auction and after-hours windows;
		// declaration order resolves it to the closing auction.
		{"closing auction boundary", at(2026, 3, 2, 16, 0), SessionAfterHoursClosing, true},
		{"after hours", at(2026, 3, 2, 17, 0), SessionAfterHours, true},
		{"between sessions", at(2026, 3, 2, 8, 50), "", false},
		{"overnight", at(2026, 3, 2, 3, 0), "", false},
		{"saturday regular hours", at(2026, 3, 7, 10, 0), "", false},
		{"sunday regular hours", at(2026, 3, 8, 10, 0), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.CurrentSession(tt.t)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("CurrentSession(%v)=(%s,%v), want (%s,%v)", tt.t, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsMarketOpen(t *testing.T) {
	var p Policy
	regular := []TradingSession{SessionRegular}
	holidays := NewHolidaySet(at(2026, 3, 3, 0, 0))

	tests := []struct {
		name     string
		t        time.Time
		allowed  []TradingSession
		holidays HolidaySet
		want     bool
	}{
		{"weekday in session", at(2026, 3, 2, 10, 0), regular, nil, true},
		{"weekday outside session", at(2026, 3, 2, 7, 0), regular, nil, false},
		{"saturday always closed", at(2026, 3, 7, 10, 0), regular, nil, false},
		{"holiday always closed", at(2026, 3, 3, 10, 0), regular, holidays, false},
		{"day after holiday open", at(2026, 3, 4, 10, 0), regular, holidays, true},
		{"after hours not allowed", at(2026, 3, 2, 17, 0), regular, nil, false},
		{"after hours allowed", at(2026, 3, 2, 17, 0), []TradingSession{SessionRegular, SessionAfterHours}, nil, true},
		{"no allowed sessions", at(2026, 3, 2, 10, 0), nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsMarketOpen(tt.t, tt.allowed, tt.holidays); got != tt.want {
				t.Fatalf("IsMarketOpen(%v)=%v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestNextOpeningTime(t *testing.T) {
	var p Policy
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"same day before open", at(2026, 3, 2, 7, 0), at(2026, 3, 2, 9, 0)},
		{"during session rolls to next day", at(2026, 3, 2, 10, 0), at(2026, 3, 3, 9, 0)},
		{"exactly at open rolls forward", at(2026, 3, 2, 9, 0), at(2026, 3, 3, 9, 0)},
		{"friday evening skips weekend", at(2026, 3, 6, 17, 0), at(2026, 3, 9, 9, 0)},
		{"saturday skips to monday", at(2026, 3, 7, 10, 0), at(2026, 3, 9, 9, 0)},
		{"sunday skips to monday", at(2026, 3, 8, 6, 0), at(2026, 3, 9, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.NextOpeningTime(tt.from, SessionRegular)
			if !got.Equal(tt.want) {
				t.Fatalf("NextOpeningTime(%v)=%v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

// NextOpeningTime skips weekends only. A date that IsMarketOpen treats as a
// closed holiday is still returned as an opening time; callers that need a
// holiday-aware answer must check the calendar themselves.
func TestNextOpeningTimeIgnoresHolidays(t *testing.T) {
	var p Policy
	holiday := at(2026, 3, 3, 0, 0)

	got := p.NextOpeningTime(at(2026, 3, 2, 10, 0), SessionRegular)
	want := at(2026, 3, 3, 9, 0)
	if !got.Equal(want) {
		t.Fatalf("NextOpeningTime=%v, want %v", got, want)
	}
	if p.IsMarketOpen(got, []TradingSession{SessionRegular}, NewHolidaySet(holiday)) {
		t.Fatal("holiday date should be closed despite being the reported opening time")
	}
}
