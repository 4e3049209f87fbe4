package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when the API omits the currency of a price entry.
const DefaultCurrency = "EUR"

var (
	ErrNullPriceRecord    = errors.New("price record is null")
	ErrMalformedPriceList = errors.New("malformed price list")
	errNotANumber         = errors.New("not a json number")
	nullLiteral           = []byte("null")
)

// PriceRecord is the price of electricity for one hour long interval.
// Amounts are only Valid when the API sent them as JSON numbers.
type PriceRecord struct {
	Total    decimal.NullDecimal `json:"total"`
	Energy   decimal.NullDecimal `json:"energy"`
	Tax      decimal.NullDecimal `json:"tax"`
	StartsAt time.Time           `json:"startsAt"`
	Currency string              `json:"currency"`
}

type PriceList []PriceRecord

// Home identifies the first home on the account.
type Home struct {
	ID          string `json:"id"`
	AppNickname string `json:"appNickname"`
}

// PriceInfo is today's price list of a home.
type PriceInfo struct {
	Home  Home
	Today PriceList
}

type rawPriceRecord struct {
	Total    json.RawMessage `json:"total"`
	Energy   json.RawMessage `json:"energy"`
	Tax      json.RawMessage `json:"tax"`
	StartsAt json.RawMessage `json:"startsAt"`
	Currency json.RawMessage `json:"currency"`
}

// UnmarshalJSON never fails on a badly typed field or a non-object entry,
// those decode into a record without a valid total. Only null is rejected.
func (p *PriceRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, nullLiteral) {
		return ErrNullPriceRecord
	}
	*p = PriceRecord{}
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	raw := rawPriceRecord{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Total = numberOrInvalid(raw.Total)
	p.Energy = numberOrInvalid(raw.Energy)
	p.Tax = numberOrInvalid(raw.Tax)
	p.StartsAt = parseStartsAt(raw.StartsAt)
	p.Currency = stringOrEmpty(raw.Currency)
	return nil
}

// Unit returns the currency of the record, falling back to DefaultCurrency.
func (p PriceRecord) Unit() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}

// DecodePriceList decodes the "today" array of the price info.
// A list that is not an array or holds a null entry fails as a whole,
// any other odd entry is kept as a record without a valid total.
func DecodePriceList(data json.RawMessage) (PriceList, error) {
	entries := []json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPriceList, err)
	}

	list := make(PriceList, len(entries))
	for i, entry := range entries {
		if err := list[i].UnmarshalJSON(entry); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedPriceList, i, err)
		}
	}
	return list, nil
}

func numberOrInvalid(raw json.RawMessage) decimal.NullDecimal {
	d, err := parseNumber(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseNumber(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero, errNotANumber
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return decimal.Zero, errNotANumber
	}
	return decimal.NewFromString(string(raw))
}

func stringOrEmpty(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func parseStartsAt(raw json.RawMessage) time.Time {
	t, err := time.Parse(time.RFC3339, stringOrEmpty(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}
