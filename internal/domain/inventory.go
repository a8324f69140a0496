package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout: формат календарной даты в запросах к провайдеру и в payload.
const DateLayout = "2006-01-02"

// Product: продукт каталога, для которого синхронизируется инвентарь.
// Движок синхронизации только читает продукты.
type Product struct {
	ID            int64
	Name          string
	AvailableDays DaySet
	TimeSlotType  string
}

// Slot: бронируемый временной интервал продукта на конкретную дату.
type Slot struct {
	ID        int64
	ProductID int64
	StartDate time.Time
	StartTime string
	EndTime   string
	// ProviderSlotID: ключ идемпотентности, уникален среди всех слотов.
	ProviderSlotID string
	Remaining      int
	CurrencyCode   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Pax: тип пассажира/билета (ADULT, CHILD, ...), уникален по Type.
type Pax struct {
	ID          int64
	Type        string
	Name        *string
	Description *string
	Min         *int
	Max         *int
}

// PaxAvailability: остаток и цена для пары (слот, тип пассажира).
type PaxAvailability struct {
	ID            int64
	SlotID        int64
	PaxID         int64
	Remaining     int
	FinalPrice    float64
	OriginalPrice float64
	CurrencyCode  string
	Discount      float64
}

// SlotPayload: слот в ответе upstream-провайдера.
type SlotPayload struct {
	StartDate       string       `json:"startDate"`
	StartTime       string       `json:"startTime"`
	EndTime         string       `json:"endTime,omitempty"`
	CurrencyCode    string       `json:"currencyCode"`
	ProviderSlotID  string       `json:"providerSlotId"`
	Remaining       int          `json:"remaining"`
	PaxAvailability []PaxPayload `json:"paxAvailability"`
}

// PaxPayload: доступность по типу пассажира внутри слота.
// Type хранится как есть: провайдер иногда присылает не строку, такие записи пропускаются.
type PaxPayload struct {
	Type        json.RawMessage `json:"type"`
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Min         *int            `json:"min,omitempty"`
	Max         *int            `json:"max,omitempty"`
	Remaining   *int            `json:"remaining"`
	Price       *PricePayload   `json:"price"`
}

// PricePayload: цена для типа пассажира.
type PricePayload struct {
	FinalPrice    float64  `json:"finalPrice"`
	OriginalPrice float64  `json:"originalPrice"`
	CurrencyCode  string   `json:"currencyCode"`
	Discount      *float64 `json:"discount,omitempty"`
}

// TypeCode возвращает код типа пассажира, если поле type: JSON-строка.
func (p PaxPayload) TypeCode() (string, bool) {
	raw := bytes.TrimSpace(p.Type)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", false
	}
	return code, true
}

// Validate проверяет обязательные поля записи pax: remaining и price.
// Без них запись не может перезаписать сохранённую доступность.
func (p PaxPayload) Validate() error {
	if p.Remaining == nil {
		return fmt.Errorf("%w: pax remaining is required", ErrSlotPayloadInvalid)
	}
	if *p.Remaining < 0 {
		return fmt.Errorf("%w: pax remaining must be non-negative, got %d", ErrSlotPayloadInvalid, *p.Remaining)
	}
	if p.Price == nil {
		return fmt.Errorf("%w: pax price is required", ErrSlotPayloadInvalid)
	}
	return nil
}

// DiscountOrZero возвращает скидку или 0, если провайдер её не прислал.
func (p PricePayload) DiscountOrZero() float64 {
	if p.Discount == nil {
		return 0
	}
	return *p.Discount
}

// ParseStartDate разбирает дату начала слота: YYYY-MM-DD или RFC3339.
func (s SlotPayload) ParseStartDate() (time.Time, error) {
	raw := strings.TrimSpace(s.StartDate)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q", ErrSlotPayloadInvalid, s.StartDate)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Validate проверяет минимальные инварианты слота перед записью.
func (s SlotPayload) Validate() error {
	if strings.TrimSpace(s.ProviderSlotID) == "" {
		return fmt.Errorf("%w: providerSlotId is required", ErrSlotPayloadInvalid)
	}
	if s.Remaining < 0 {
		return fmt.Errorf("%w: remaining must be non-negative, got %d", ErrSlotPayloadInvalid, s.Remaining)
	}
	if _, err := s.ParseStartDate(); err != nil {
		return err
	}
	return nil
}

// ToSlot строит Slot для записи в хранилище.
func (s SlotPayload) ToSlot(productID int64) (Slot, error) {
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	startDate, _ := s.ParseStartDate()
	return Slot{
		ProductID:      productID,
		StartDate:      startDate,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		ProviderSlotID: strings.TrimSpace(s.ProviderSlotID),
		Remaining:      s.Remaining,
		CurrencyCode:   s.CurrencyCode,
	}, nil
}
