package entity

import (
	"fmt"
	"sort"
	"time"
)

var weekdayNames = [7]string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"}

// ScheduleSlot is a recurring weekly publication time
type ScheduleSlot struct {
	ID                string   `json:"id"`
	DayOfWeek         int      `json:"day_of_week"` // 0 = Monday
	TimeOfDay         string   `json:"time_of_day"` // HH:MM
	IsActive          bool     `json:"is_active"`
	Platforms         []string `json:"platforms"`
	PreferredCategory Category `json:"preferred_category,omitempty"`
}

// Clock parses TimeOfDay into hour and minute
func (s *ScheduleSlot) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.TimeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSlot, s.TimeOfDay)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate validates the slot fields
func (s *ScheduleSlot) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6", ErrInvalidSlot)
	}
	if _, _, err := s.Clock(); err != nil {
		return err
	}
	if s.PreferredCategory != "" && !s.PreferredCategory.IsValid() {
		return ErrInvalidCategory
	}
	for _, p := range s.Platforms {
		if !IsKnownPlatform(p) {
			return ErrInvalidPlatform
		}
	}
	return nil
}

// String returns e.g. "Среда 10:00"
func (s *ScheduleSlot) String() string {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return s.TimeOfDay
	}
	return weekdayNames[s.DayOfWeek] + " " + s.TimeOfDay
}

// Next returns the first occurrence of the slot strictly after from, in from's location
func (s *ScheduleSlot) Next(from time.Time) (time.Time, error) {
	hour, minute, err := s.Clock()
	if err != nil {
		return time.Time{}, err
	}

	// time.Weekday counts from Sunday
	current := (int(from.Weekday()) + 6) % 7
	days := (s.DayOfWeek - current + 7) % 7

	candidate := time.Date(from.Year(), from.Month(), from.Day()+days, hour, minute, 0, 0, from.Location())
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, nil
}

// SlotTime is a concrete occurrence of a slot
type SlotTime struct {
	Slot ScheduleSlot `json:"slot"`
	At   time.Time    `json:"at"`
}

// NextSlotTimes returns the next n occurrences across all active slots
func NextSlotTimes(slots []ScheduleSlot, from time.Time, n int) []SlotTime {
	if n <= 0 {
		return nil
	}

	var out []SlotTime
	for _, s := range slots {
		if !s.IsActive {
			continue
		}
		at, err := s.Next(from)
		if err != nil {
			continue
		}
		// each slot repeats weekly, so n weeks are enough for n results
		for i := 0; i < n; i++ {
			out = append(out, SlotTime{Slot: s, At: at.AddDate(0, 0, 7*i)})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
