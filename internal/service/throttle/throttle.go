// Package throttle ограничивает частоту обращений к upstream-провайдеру.
package throttle

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval: минимальный зазор между вызовами провайдера (лимит 30 rpm с запасом).
const DefaultInterval = 2100 * time.Millisecond

// Limiter выдаёт разрешение на один вызов провайдера.
type Limiter interface {
	// Wait блокируется до разрешения и возвращает момент выдачи.
	Wait(ctx context.Context) (time.Time, error)
}

// MinInterval: общий для процесса ограничитель с фиксированным минимальным интервалом.
// Между двумя выданными разрешениями всегда проходит не меньше interval,
// независимо от числа конкурентных вызывающих.
type MinInterval struct {
	interval time.Duration
	now      func() time.Time

	// slot содержит единственный "билет", ожидающие обслуживаются по очереди.
	slot chan struct{}

	mu   sync.Mutex
	last time.Time
}

// NewMinInterval создаёт ограничитель; interval <= 0 заменяется DefaultInterval.
func NewMinInterval(interval time.Duration) *MinInterval {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &MinInterval{
		interval: interval,
		now:      time.Now,
		slot:     make(chan struct{}, 1),
	}
}

// Interval возвращает настроенный минимальный интервал.
func (l *MinInterval) Interval() time.Duration {
	return l.interval
}

// Wait ждёт своей очереди и интервала после предыдущей выдачи.
func (l *MinInterval) Wait(ctx context.Context) (time.Time, error) {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
	defer func() { <-l.slot }()

	for {
		l.mu.Lock()
		now := l.now()
		var delay time.Duration
		if !l.last.IsZero() {
			delay = l.interval - now.Sub(l.last)
		}
		if delay <= 0 {
			l.last = now
			l.mu.Unlock()
			return now, nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return time.Time{}, ctx.Err()
		}
	}
}

// Noop не ограничивает вызовы. Используется в тестах и утилитах.
type Noop struct{}

func (Noop) Wait(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return time.Now(), nil
}

var (
	_ Limiter = (*MinInterval)(nil)
	_ Limiter = Noop{}
)
