package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Currency is a 3-letter ISO 4217 currency code.
type Currency string

// Currencies tracked by the warehouse
const (
	CurrencyEUR Currency = "EUR"
	CurrencyNOK Currency = "NOK"
	CurrencySEK Currency = "SEK"
	CurrencyPLN Currency = "PLN"
	CurrencyRON Currency = "RON"
	CurrencyDKK Currency = "DKK"
	CurrencyCZK Currency = "CZK"
)

// ReferenceCurrency is the common base all source rates are quoted against.
// Cross pairs are triangulated through it.
const ReferenceCurrency = CurrencyEUR

func (c Currency) String() string {
	return string(c)
}

// Validate checks that the code is exactly three uppercase ASCII letters.
func (c Currency) Validate() error {
	if len(c) != 3 {
		return fmt.Errorf("currency code must be 3 letters, got %q", string(c))
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("currency code must be uppercase letters, got %q", string(c))
		}
	}
	return nil
}

// Universe is the fixed set of currencies a pipeline run operates over.
// It is immutable after construction and passed explicitly to every
// component that needs it, so tests can run against a smaller set.
type Universe struct {
	codes   []Currency
	members map[Currency]struct{}
}

// NewUniverse builds a universe from the given codes. Duplicates are
// collapsed; the resulting order is sorted and stable.
func NewUniverse(codes ...Currency) (Universe, error) {
	if len(codes) == 0 {
		return Universe{}, errors.New("universe must contain at least one currency")
	}

	members := make(map[Currency]struct{}, len(codes))
	unique := make([]Currency, 0, len(codes))
	for _, c := range codes {
		if err := c.Validate(); err != nil {
			return Universe{}, err
		}
		if _, ok := members[c]; ok {
			continue
		}
		members[c] = struct{}{}
		unique = append(unique, c)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	return Universe{codes: unique, members: members}, nil
}

// ParseUniverse parses a comma-separated list of currency codes, e.g.
// "NOK,EUR,SEK". Whitespace around codes is ignored, case is normalized.
func ParseUniverse(s string) (Universe, error) {
	parts := strings.Split(s, ",")
	codes := make([]Currency, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		codes = append(codes, Currency(p))
	}
	return NewUniverse(codes...)
}

// DefaultUniverse returns the production currency set.
func DefaultUniverse() Universe {
	u, err := NewUniverse(
		CurrencyNOK, CurrencyEUR, CurrencySEK, CurrencyPLN,
		CurrencyRON, CurrencyDKK, CurrencyCZK,
	)
	if err != nil {
		panic(err) // static codes, cannot fail
	}
	return u
}

// Contains reports whether c is part of the universe.
func (u Universe) Contains(c Currency) bool {
	_, ok := u.members[c]
	return ok
}

// Currencies returns the universe members in sorted order.
func (u Universe) Currencies() []Currency {
	out := make([]Currency, len(u.codes))
	copy(out, u.codes)
	return out
}

// Size returns the number of currencies in the universe.
func (u Universe) Size() int {
	return len(u.codes)
}

// PairCount returns the number of directed pairs, U*(U-1). A date with
// complete source data expands to exactly this many cross rates.
func (u Universe) PairCount() int {
	n := len(u.codes)
	return n * (n - 1)
}

// Symbols returns the universe codes excluding the reference currency,
// formatted for the rate API's symbols query parameter.
func (u Universe) Symbols() string {
	parts := make([]string, 0, len(u.codes))
	for _, c := range u.codes {
		if c == ReferenceCurrency {
			continue
		}
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}
