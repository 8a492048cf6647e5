package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RateScale is the fixed number of fractional digits stored for rates.
const RateScale = 8

// Rate sources
const (
	RateSourceFrankfurter = "frankfurter"
	RateSourceDerived     = "derived"
	RateSourceManual      = "manual"
)

// RateObservation is one source-feed data point: the reference currency's
// quote against one universe currency on one date. The reference currency
// itself never appears as a quote; its rate is 1.0 by definition.
type RateObservation struct {
	Date          time.Time       `json:"rate_date"`
	BaseCurrency  Currency        `json:"base_currency"`
	QuoteCurrency Currency        `json:"quote_currency"`
	Rate          decimal.Decimal `json:"exchange_rate"`
}

// Validate validates a source observation.
func (o *RateObservation) Validate() error {
	if o.Date.IsZero() {
		return errors.New("rate_date is required")
	}
	if err := o.BaseCurrency.Validate(); err != nil {
		return err
	}
	if err := o.QuoteCurrency.Validate(); err != nil {
		return err
	}
	if o.BaseCurrency == o.QuoteCurrency {
		return errors.New("base_currency and quote_currency must be different")
	}
	if !o.Rate.IsPositive() {
		return errors.New("exchange_rate must be positive")
	}
	return nil
}

// CrossRate is a derived directed pair rate for one date, triangulated
// through the reference currency and rounded to RateScale digits.
type CrossRate struct {
	ID            int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Date          time.Time       `json:"rate_date" gorm:"column:rate_date;uniqueIndex:ux_daily_date_pair"`
	BaseCurrency  Currency        `json:"base_currency" gorm:"column:base_currency;size:3;uniqueIndex:ux_daily_date_pair"`
	QuoteCurrency Currency        `json:"quote_currency" gorm:"column:quote_currency;size:3;uniqueIndex:ux_daily_date_pair"`
	Rate          decimal.Decimal `json:"exchange_rate" gorm:"column:exchange_rate;type:decimal(18,8)"`
	Source        string          `json:"source" gorm:"column:source;size:32"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

// TableName maps CrossRate onto the daily fact table.
func (CrossRate) TableName() string {
	return "fact_fx_rates_daily"
}

// Validate validates a derived cross rate.
func (cr *CrossRate) Validate() error {
	if cr.Date.IsZero() {
		return errors.New("rate_date is required")
	}
	if err := cr.BaseCurrency.Validate(); err != nil {
		return err
	}
	if err := cr.QuoteCurrency.Validate(); err != nil {
		return err
	}
	if cr.BaseCurrency == cr.QuoteCurrency {
		return errors.New("base_currency and quote_currency must be different")
	}
	if !cr.Rate.IsPositive() {
		return errors.New("exchange_rate must be positive")
	}
	return nil
}

// Inverse returns the opposite direction of the pair at full precision.
func (cr *CrossRate) Inverse() decimal.Decimal {
	if cr.Rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(cr.Rate)
}

// DateOnly normalizes t to midnight UTC so date keys compare equal
// regardless of the wall-clock component the source carried.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
