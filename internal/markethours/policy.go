package markethours

import "time"

// Policy answers session and market-open questions. It is stateless and safe
// for concurrent use.
type Policy struct{}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsWithinSession reports whether the time of day of t falls inside the
// session window. Boundaries are inclusive at both ends. The date is not
// consulted here; weekend handling belongs to CurrentSession/IsMarketOpen.
func (Policy) IsWithinSession(t time.Time, session TradingSession) bool {
	r, ok := sessionRanges[session]
	if !ok {
		return false
	}
	m := minuteOfDay(t)
	return m >= r.start && m <= r.end
}

// CurrentSession returns the first session (in declaration order) containing
// the time of day of t. The second result is false on weekends or when no
// session matches.
func (p Policy) CurrentSession(t time.Time) (TradingSession, bool) {
	if isWeekend(t) {
		return "", false
	}
	for _, s := range sessionOrder {
		if p.IsWithinSession(t, s) {
			return s, true
		}
	}
	return "", false
}

// IsMarketOpen reports whether trading is permitted at t given the allowed
// sessions and the holiday calendar. Weekends and holidays close the market
// regardless of time of day.
func (p Policy) IsMarketOpen(t time.Time, allowed []TradingSession, holidays HolidaySet) bool {
	if isWeekend(t) || holidays.Contains(t) {
		return false
	}
	for _, s := range allowed {
		if p.IsWithinSession(t, s) {
			return true
		}
	}
	return false
}

// NextOpeningTime returns the next start of the target session at or after
// from. Saturdays and Sundays are skipped. Configured holidays are not
// consulted; see the calendar tests for the documented behavior.
func (p Policy) NextOpeningTime(from time.Time, target TradingSession) time.Time {
	startHour, startMin := target.Start()

	day := from
	if !isWeekend(day) {
		start := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMin, 0, 0, day.Location())
		if from.Before(start) {
			return start
		}
	}
	for {
		day = day.AddDate(0, 0, 1)
		if isWeekend(day) {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), startHour, startMin, 0, 0, day.Location())
	}
}
