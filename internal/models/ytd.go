package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ChangePctScale is the number of fractional digits stored for the YTD
// percent change.
const ChangePctScale = 4

// YtdMetric summarizes all cross rates for one directed pair from
// January 1 of Date's year through Date inclusive. Rows for a date are
// recomputed wholesale whenever that date falls inside a run window.
type YtdMetric struct {
	ID            int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Date          time.Time       `json:"rate_date" gorm:"column:rate_date;uniqueIndex:ux_ytd_date_pair"`
	BaseCurrency  Currency        `json:"base_currency" gorm:"column:base_currency;size:3;uniqueIndex:ux_ytd_date_pair"`
	QuoteCurrency Currency        `json:"quote_currency" gorm:"column:quote_currency;size:3;uniqueIndex:ux_ytd_date_pair"`
	AvgRate       decimal.Decimal `json:"ytd_avg_rate" gorm:"column:ytd_avg_rate;type:decimal(18,8)"`
	MinRate       decimal.Decimal `json:"ytd_min_rate" gorm:"column:ytd_min_rate;type:decimal(18,8)"`
	MaxRate       decimal.Decimal `json:"ytd_max_rate" gorm:"column:ytd_max_rate;type:decimal(18,8)"`
	FirstRate     decimal.Decimal `json:"ytd_first_rate" gorm:"column:ytd_first_rate;type:decimal(18,8)"`
	LastRate      decimal.Decimal `json:"ytd_last_rate" gorm:"column:ytd_last_rate;type:decimal(18,8)"`
	ChangePct     decimal.Decimal `json:"ytd_change_pct" gorm:"column:ytd_change_pct;type:decimal(12,4)"`
	DaysCount     int             `json:"ytd_days_count" gorm:"column:ytd_days_count"`
	Variance      decimal.Decimal `json:"ytd_variance" gorm:"column:ytd_variance;type:decimal(20,8)"`
	StdDev        decimal.Decimal `json:"ytd_std_dev" gorm:"column:ytd_std_dev;type:decimal(20,8)"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
}

// TableName maps YtdMetric onto the YTD fact table.
func (YtdMetric) TableName() string {
	return "fact_fx_rates_ytd"
}

// Validate validates a YTD metric row.
func (m *YtdMetric) Validate() error {
	if m.Date.IsZero() {
		return errors.New("rate_date is required")
	}
	if err := m.BaseCurrency.Validate(); err != nil {
		return err
	}
	if err := m.QuoteCurrency.Validate(); err != nil {
		return err
	}
	if m.BaseCurrency == m.QuoteCurrency {
		return errors.New("base_currency and quote_currency must be different")
	}
	if m.DaysCount < 1 {
		return errors.New("ytd_days_count must be at least 1")
	}
	if m.MinRate.GreaterThan(m.MaxRate) {
		return errors.New("ytd_min_rate cannot exceed ytd_max_rate")
	}
	if m.Variance.IsNegative() {
		return errors.New("ytd_variance cannot be negative")
	}
	return nil
}
