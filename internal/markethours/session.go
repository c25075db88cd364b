// Package markethours evaluates exchange trading sessions and calendars.
package markethours

import (
	"fmt"
	"time"
)

// TradingSession names an exchange time window in local exchange time.
type TradingSession string

const (
	SessionPreMarket         TradingSession = "PRE_MARKET"
	SessionRegular           TradingSession = "REGULAR"
	SessionAfterHoursClosing TradingSession = "AFTER_HOURS_CLOSING"
	SessionAfterHours        TradingSession = "AFTER_HOURS"
)

// sessionRange holds a session window as minutes since midnight.
// Both boundaries are inclusive.
type sessionRange struct {
	start int // minute of day
	end   int
}

var sessionRanges = map[TradingSession]sessionRange{
	SessionPreMarket:         {start: 8*60 + 30, end: 8*60 + 40},
	SessionRegular:           {start: 9 * 60, end: 15*60 + 30},
	SessionAfterHoursClosing: {start: 15*60 + 40, end: 16 * 60},
	SessionAfterHours:        {start: 16 * 60, end: 18 * 60},
}

// sessionOrder fixes evaluation order for CurrentSession.
var sessionOrder = []TradingSession{
	SessionPreMarket,
	SessionRegular,
	SessionAfterHoursClosing,
	SessionAfterHours,
}

// ParseSession converts a config string into a TradingSession.
func ParseSession(s string) (TradingSession, error) {
	switch TradingSession(s) {
	case SessionPreMarket, SessionRegular, SessionAfterHoursClosing, SessionAfterHours:
		return TradingSession(s), nil
	}
	return "", fmt.Errorf("unknown trading session %q", s)
}

// Start returns the session start as (hour, minute).
func (s TradingSession) Start() (int, int) {
	r := sessionRanges[s]
	return r.start / 60, r.start % 60
}

// End returns the session end as (hour, minute).
func (s TradingSession) End() (int, int) {
	r := sessionRanges[s]
	return r.end / 60, r.end % 60
}

const holidayKeyLayout = "2006-01-02"

// HolidaySet is a set of non-trading dates.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add marks the date of t as a holiday.
func (h HolidaySet) Add(t time.Time) {
	h[t.Format(holidayKeyLayout)] = struct{}{}
}

// Contains reports whether the date of t is a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[t.Format(holidayKeyLayout)]
	return ok
}
