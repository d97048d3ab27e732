package provider

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Canonical field names. Every provider adapter maps its raw schema onto
// these before any predicate sees the data; the screening code never touches
// provider-specific column names.
const (
	FieldCode             = "code"
	FieldName             = "name"
	FieldReportDate       = "report_date"
	FieldRevenue          = "total_revenue"
	FieldNetProfit        = "net_profit"
	FieldCash             = "cash_equivalents"
	FieldShortDebt        = "short_term_borrowings"
	FieldLongDebt         = "long_term_borrowings"
	FieldBondsPayable     = "bonds_payable"
	FieldController       = "controller"
	FieldControlType      = "control_type"
	FieldDividendPerShare = "cash_dividend_per_share"
	FieldPeriod           = "period"
	FieldProgress         = "progress"
	FieldAnnounceDate     = "announce_date"
	FieldPledgeRatio      = "pledge_ratio"
	FieldPrice            = "price"
	FieldHolder           = "holder"
	FieldHoldRatio        = "hold_ratio"
	FieldDate             = "date"
	FieldOpen             = "open"
	FieldClose            = "close"
	FieldHigh             = "high"
	FieldLow              = "low"
	FieldVolume           = "volume"
)

// Row is a single normalized record.
type Row map[string]string

// Float parses the named field as a float64, returning def when the field
// is missing or unparseable.
func (r Row) Float(field string, def float64) float64 {
	raw, ok := r[field]
	if !ok {
		return def
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// Table is the opaque tabular payload every dataset fetch returns.
// Rows are ordered newest-first for statement-like datasets, matching the
// upstream convention.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Empty reports whether the table carries no rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Encode serializes the table for cache storage.
func (t *Table) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTable deserializes a cached payload. A nil error with a valid table
// is the only success path; callers treat failures as cache misses.
func DecodeTable(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
