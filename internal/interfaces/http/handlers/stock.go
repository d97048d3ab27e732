package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yuhaojin/astock-screener/internal/provider"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

func isFiscalYearEnd(date string) bool {
	return strings.Contains(date, "12-31") || strings.HasSuffix(date, "1231")
}

func (h *Handlers) code(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := mux.Vars(r)["code"]
	if !codePattern.MatchString(code) {
		h.writeError(w, http.StatusBadRequest, "invalid_code", "证券代码必须是6位数字")
		return "", false
	}
	return code, true
}

// head returns at most n newest rows of a table as plain row maps.
func head(t *provider.Table, n int) []provider.Row {
	if t.Empty() {
		return []provider.Row{}
	}
	if t.Len() < n {
		n = t.Len()
	}
	return t.Rows[:n]
}

// StockQuote handles GET /api/stock/{code}/info.
func (h *Handlers) StockQuote(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	quote := h.fetcher.Fetch(r.Context(), provider.DatasetQuote, code)
	if quote.Empty() {
		h.writeError(w, http.StatusNotFound, "not_found", "未找到")
		return
	}
	h.writeJSON(w, http.StatusOK, quote.Rows[0])
}

// StockKline handles GET /api/stock/{code}/kline?start=yyyymmdd&end=yyyymmdd.
func (h *Handlers) StockKline(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	start := r.URL.Query().Get("start")
	if start == "" {
		start = "20200101"
	}
	end := r.URL.Query().Get("end")
	if end == "" {
		end = time.Now().Format("20060102")
	}
	kline := h.fetcher.Fetch(r.Context(), provider.DatasetKline, code, start, end)
	h.writeJSON(w, http.StatusOK, kline)
}

// StockFinancials handles GET /api/stock/{code}/financials: the five most
// recent fiscal-year statements across the three reports.
func (h *Handlers) StockFinancials(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	annual := func(t *provider.Table) []provider.Row {
		rows := make([]provider.Row, 0, 5)
		for _, row := range t.Rows {
			if isFiscalYearEnd(row[provider.FieldReportDate]) {
				rows = append(rows, row)
				if len(rows) == 5 {
					break
				}
			}
		}
		return rows
	}

	h.writeJSON(w, http.StatusOK, map[string][]provider.Row{
		"profit":   annual(h.fetcher.Fetch(ctx, provider.DatasetProfitStatement, code)),
		"balance":  annual(h.fetcher.Fetch(ctx, provider.DatasetBalanceSheet, code)),
		"cashflow": annual(h.fetcher.Fetch(ctx, provider.DatasetCashflow, code)),
	})
}

// StockDividend handles GET /api/stock/{code}/dividend.
func (h *Handlers) StockDividend(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	dividends := h.fetcher.Fetch(r.Context(), provider.DatasetDividends, code)
	h.writeJSON(w, http.StatusOK, head(dividends, 10))
}

// StockShareholders handles GET /api/stock/{code}/shareholders.
func (h *Handlers) StockShareholders(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	holders := h.fetcher.Fetch(r.Context(), provider.DatasetShareholders, code)
	h.writeJSON(w, http.StatusOK, head(holders, 10))
}
