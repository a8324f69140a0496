package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Day: день недели, в который продукт доступен для бронирования.
type Day uint8

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// Valid проверяет, что значение входит в перечисление.
func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", uint8(d))
	}
	return dayNames[d]
}

// MarshalText сериализует день в верхнем регистре ("MONDAY").
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, uint8(d))
	}
	return []byte(dayNames[d]), nil
}

// UnmarshalText разбирает название дня без учёта регистра.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDay разбирает название дня недели ("monday", "MONDAY").
func ParseDay(s string) (Day, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for d := Monday; d <= Sunday; d++ {
		if dayNames[d] == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// DayOf возвращает день недели для момента времени в его собственной локации.
func DayOf(t time.Time) Day {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Day(t.Weekday())
}

// DaySet: множество дней недели, хранится битовой маской.
type DaySet uint8

// NewDaySet собирает множество из перечисленных дней, игнорируя невалидные.
func NewDaySet(days ...Day) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseDaySet разбирает список названий дней.
func ParseDaySet(names []string) (DaySet, error) {
	var s DaySet
	for _, name := range names {
		d, err := ParseDay(name)
		if err != nil {
			return 0, err
		}
		s = s.With(d)
	}
	return s, nil
}

// With возвращает копию множества с добавленным днём.
func (s DaySet) With(d Day) DaySet {
	if !d.Valid() {
		return s
	}
	return s | 1<<(d-1)
}

// Contains проверяет принадлежность дня множеству.
func (s DaySet) Contains(d Day) bool {
	return d.Valid() && s&(1<<(d-1)) != 0
}

func (s DaySet) Empty() bool {
	return s == 0
}

// Days возвращает дни множества в порядке с понедельника.
func (s DaySet) Days() []Day {
	days := make([]Day, 0, 7)
	for d := Monday; d <= Sunday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// Strings возвращает названия дней, как они хранятся в БД.
func (s DaySet) Strings() []string {
	days := s.Days()
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String())
	}
	return names
}

func (s DaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *DaySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseDaySet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
