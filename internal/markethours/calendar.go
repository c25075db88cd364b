package markethours

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar bundles the allowed sessions and holiday dates loaded from the
// calendar file.
type Calendar struct {
	AllowedSessions []TradingSession
	Holidays        HolidaySet
}

type calendarFile struct {
	AllowedSessions []string `yaml:"allowed_sessions"`
	Holidays        []string `yaml:"holidays"`
}

// LoadCalendar reads a YAML calendar file. An empty path returns an empty
// calendar, which the engine treats as "market-hours checking disabled".
func LoadCalendar(path string) (Calendar, error) {
	cal := Calendar{Holidays: make(HolidaySet)}
	if path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cal, fmt.Errorf("read calendar file: %w", err)
	}

	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cal, fmt.Errorf("parse calendar file: %w", err)
	}

	for _, name := range file.AllowedSessions {
		s, err := ParseSession(name)
		if err != nil {
			return cal, fmt.Errorf("calendar allowed_sessions: %w", err)
		}
		cal.AllowedSessions = append(cal.AllowedSessions, s)
	}
	for _, d := range file.Holidays {
		day, err := time.Parse(holidayKeyLayout, d)
		if err != nil {
			return cal, fmt.Errorf("calendar holiday %q: %w", d, err)
		}
		cal.Holidays.Add(day)
	}
	return cal, nil
}
