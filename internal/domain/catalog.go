package domain

import (
	"fmt"
	"strings"
	"time"
)

// SlotDetails: слот вместе с доступностью по типам пассажиров.
type SlotDetails struct {
	Slot Slot
	Pax  []PaxDetails
}

// PaxDetails: тип пассажира и его доступность в слоте.
type PaxDetails struct {
	Pax          Pax
	Availability PaxAvailability
}

// PriceView: цена в ответах API.
type PriceView struct {
	FinalPrice    float64 `json:"finalPrice"`
	OriginalPrice float64 `json:"originalPrice"`
	CurrencyCode  string  `json:"currencyCode"`
}

// DatePrice: дата с ценой первого типа пассажира первого слота этой даты.
type DatePrice struct {
	Date  string    `json:"date"`
	Price PriceView `json:"price"`
}

// ProductDates: даты, на которые у продукта есть синхронизированные слоты.
type ProductDates struct {
	Dates []DatePrice `json:"dates"`
}

// PaxView: доступность типа пассажира в ответах API.
type PaxView struct {
	Type        string    `json:"type"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Min         *int      `json:"min"`
	Max         *int      `json:"max"`
	Remaining   int       `json:"remaining"`
	Price       PriceView `json:"price"`
}

// SlotView: слот в ответах API.
type SlotView struct {
	StartTime       string    `json:"startTime"`
	StartDate       string    `json:"startDate"`
	Remaining       int       `json:"remaining"`
	PaxAvailability []PaxView `json:"paxAvailability"`
}

// ProductSlots: слоты продукта на дату.
type ProductSlots struct {
	Slots []SlotView `json:"slots"`
}

// ParseDate разбирает календарную дату запроса (YYYY-MM-DD) в полночь UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: got %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// PriceOf возвращает цену записи доступности.
func PriceOf(av PaxAvailability) PriceView {
	return PriceView{
		FinalPrice:    av.FinalPrice,
		OriginalPrice: av.OriginalPrice,
		CurrencyCode:  av.CurrencyCode,
	}
}
