// Package window вычисляет календарные даты, которые нужно синхронизировать
// для продукта в пределах горизонта.
package window

import (
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// Calculator вычисляет окно дат относительно "сегодня" в заданной временной зоне.
type Calculator struct {
	now func() time.Time
	loc *time.Location
}

// Option настраивает Calculator.
type Option func(*Calculator)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation задаёт временную зону, в которой определяется "сегодня".
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewCalculator создаёт калькулятор; по умолчанию time.Now и UTC.
func NewCalculator(options ...Option) *Calculator {
	c := &Calculator{
		now: time.Now,
		loc: time.UTC,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Today возвращает полночь текущего дня в зоне калькулятора.
func (c *Calculator) Today() time.Time {
	return midnight(c.now().In(c.loc))
}

// ComputeSyncDates возвращает даты для синхронизации в хронологическом порядке.
//
// horizonDays == 1: только сегодня, если день недели входит в availableDays.
// horizonDays > 1: даты с завтра по сегодня+horizonDays-1; сегодня не включается.
// Асимметрия сохранена намеренно и зафиксирована тестами.
func (c *Calculator) ComputeSyncDates(availableDays domain.DaySet, horizonDays int) []time.Time {
	if horizonDays < 1 || availableDays.Empty() {
		return nil
	}

	today := c.Today()
	if horizonDays == 1 {
		if availableDays.Contains(domain.DayOf(today)) {
			return []time.Time{today}
		}
		return nil
	}

	dates := make([]time.Time, 0, horizonDays-1)
	for offset := 1; offset < horizonDays; offset++ {
		date := today.AddDate(0, 0, offset)
		if availableDays.Contains(domain.DayOf(date)) {
			dates = append(dates, date)
		}
	}
	return dates
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
