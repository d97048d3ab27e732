package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Eastmoney endpoint addresses.
const (
	eastmoneyListURL       = "https://82.push2.eastmoney.com/api/qt/clist/get"
	eastmoneyQuoteURL      = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	eastmoneyKLineURL      = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	eastmoneyDataCenterURL = "https://datacenter-web.eastmoney.com/api/data/v1/get"
)

// List fields: f12 code, f14 name, f2 price.
const (
	listFieldsBrief = "f12,f14"
	quoteFields     = "f2,f12,f14"
	listPageSize    = 500
)

// Browser-like headers; the push2 endpoints reject bare clients.
const (
	emReferer        = "https://quote.eastmoney.com/"
	emAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Eastmoney fetches datasets from the Eastmoney push2/datacenter APIs and
// normalizes each raw schema onto the canonical field names. A token-bucket
// smoother spaces individual requests; the shared window governor upstream
// of this client enforces the per-minute budget.
type Eastmoney struct {
	client    *http.Client
	smoother  *rate.Limiter
	userAgent string
}

// NewEastmoney builds the default upstream provider.
func NewEastmoney(rps float64, burst int, timeout time.Duration, userAgent string) *Eastmoney {
	if burst < 1 {
		burst = 1
	}
	return &Eastmoney{
		client:    &http.Client{Timeout: timeout},
		smoother:  rate.NewLimiter(rate.Limit(rps), burst),
		userAgent: userAgent,
	}
}

func (e *Eastmoney) Name() string { return "eastmoney" }

// Fetch retrieves and normalizes one dataset. Per-entity datasets take the
// 6-character code as the first arg; kline additionally takes start and end
// dates (yyyymmdd).
func (e *Eastmoney) Fetch(ctx context.Context, ds Dataset, args ...string) (*Table, error) {
	code := ""
	if len(args) > 0 {
		code = args[0]
	}

	switch ds {
	case DatasetStockList:
		return e.fetchStockList(ctx)
	case DatasetQuote:
		return e.fetchQuote(ctx, code)
	case DatasetKline:
		start, end := "20200101", time.Now().Format("20060102")
		if len(args) > 2 {
			start, end = args[1], args[2]
		}
		return e.fetchKline(ctx, code, start, end)
	case DatasetProfitStatement:
		return e.datacenter(ctx, "RPT_DMSK_FN_INCOME", code, map[string]string{
			"REPORT_DATE":          FieldReportDate,
			"TOTAL_OPERATE_INCOME": FieldRevenue,
			"PARENT_NETPROFIT":     FieldNetProfit,
		})
	case DatasetBalanceSheet:
		return e.datacenter(ctx, "RPT_DMSK_FN_BALANCE", code, map[string]string{
			"REPORT_DATE":   FieldReportDate,
			"MONETARYFUNDS": FieldCash,
			"SHORT_LOAN":    FieldShortDebt,
			"LONG_LOAN":     FieldLongDebt,
			"BOND_PAYABLE":  FieldBondsPayable,
		})
	case DatasetCashflow:
		return e.datacenter(ctx, "RPT_DMSK_FN_CASHFLOW", code, map[string]string{
			"REPORT_DATE":     FieldReportDate,
			"NETCASH_OPERATE": "net_operating_cashflow",
		})
	case DatasetDividends:
		return e.fetchDividends(ctx, code)
	case DatasetShareholders:
		return e.datacenter(ctx, "RPT_F10_EH_HOLDERS", code, map[string]string{
			"HOLDER_NAME": FieldHolder,
			"HOLD_RATIO":  FieldHoldRatio,
			"END_DATE":    FieldReportDate,
		})
	case DatasetControllers:
		return e.datacenter(ctx, "RPT_ACTUALCONTROLLERS", "", map[string]string{
			"SECURITY_CODE":     FieldCode,
			"ACTUAL_CONTROLLER": FieldController,
			"CONTROL_TYPE":      FieldControlType,
		})
	case DatasetPledges:
		return e.datacenter(ctx, "RPT_CSDC_PLEDGE_LIST", "", map[string]string{
			"SECURITY_CODE": FieldCode,
			"PLEDGE_RATIO":  FieldPledgeRatio,
		})
	case DatasetBuybacks:
		return e.datacenter(ctx, "RPT_REPURCHASE", "", map[string]string{
			"SECURITY_CODE":       FieldCode,
			"REPURCHASE_PROGRESS": FieldProgress,
			"UPDATE_DATE":         FieldAnnounceDate,
		})
	case DatasetIssuance:
		return e.datacenter(ctx, "RPT_SEO_DETAIL", "", map[string]string{
			"SECURITY_CODE": FieldCode,
			"ISSUE_DATE":    FieldAnnounceDate,
		})
	case DatasetConvertibleBonds:
		return e.datacenter(ctx, "RPT_BOND_CB_LIST", "", map[string]string{
			"CONVERT_STOCK_CODE": FieldCode,
			"PUBLIC_START_DATE":  FieldAnnounceDate,
		})
	default:
		return nil, fmt.Errorf("eastmoney: unknown dataset %q", ds)
	}
}

// get performs one smoothed HTTP GET and returns the response body.
func (e *Eastmoney) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if err := e.smoother.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Referer", emReferer)
	req.Header.Set("Accept-Language", emAcceptLanguage)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: status %d for %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("eastmoney: malformed response for %s", rawURL)
	}
	return body, nil
}

// fetchStockList pages through the full A-share listing (code + name).
func (e *Eastmoney) fetchStockList(ctx context.Context) (*Table, error) {
	table := &Table{Columns: []string{FieldCode, FieldName}}

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pn", strconv.Itoa(page))
		params.Set("pz", strconv.Itoa(listPageSize))
		params.Set("po", "1")
		params.Set("np", "1")
		params.Set("fltt", "2")
		params.Set("fs", "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23,m:0 t:81 s:2048")
		params.Set("fields", listFieldsBrief)

		body, err := e.get(ctx, eastmoneyListURL, params)
		if err != nil {
			return nil, err
		}
		rows := gjson.GetBytes(body, "data.diff")
		if !rows.Exists() || len(rows.Array()) == 0 {
			break
		}
		for _, item := range rows.Array() {
			table.Rows = append(table.Rows, Row{
				FieldCode: padCode(item.Get("f12").String()),
				FieldName: item.Get("f14").String(),
			})
		}
		if len(rows.Array()) < listPageSize {
			break
		}
	}

	if table.Empty() {
		return nil, fmt.Errorf("eastmoney: stock list came back empty")
	}
	log.Debug().Int("count", table.Len()).Msg("fetched stock list")
	return table, nil
}

// fetchQuote returns a single-row table with the latest price for code.
func (e *Eastmoney) fetchQuote(ctx context.Context, code string) (*Table, error) {
	params := url.Values{}
	params.Set("secids", secID(code))
	params.Set("fltt", "2")
	params.Set("fields", quoteFields)

	body, err := e.get(ctx, eastmoneyQuoteURL, params)
	if err != nil {
		return nil, err
	}
	table := &Table{Columns: []string{FieldCode, FieldName, FieldPrice}}
	for _, item := range gjson.GetBytes(body, "data.diff").Array() {
		table.Rows = append(table.Rows, Row{
			FieldCode:  padCode(item.Get("f12").String()),
			FieldName:  item.Get("f14").String(),
			FieldPrice: item.Get("f2").String(),
		})
	}
	return table, nil
}

// fetchKline returns daily forward-adjusted bars for code.
func (e *Eastmoney) fetchKline(ctx context.Context, code, start, end string) (*Table, error) {
	params := url.Values{}
	params.Set("secid", secID(code))
	params.Set("klt", "101")
	params.Set("fqt", "1")
	params.Set("beg", start)
	params.Set("end", end)
	params.Set("fields1", "f1,f2,f3")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56")

	body, err := e.get(ctx, eastmoneyKLineURL, params)
	if err != nil {
		return nil, err
	}
	table := &Table{Columns: []string{FieldDate, FieldOpen, FieldClose, FieldHigh, FieldLow, FieldVolume}}
	for _, line := range gjson.GetBytes(body, "data.klines").Array() {
		parts := strings.Split(line.String(), ",")
		if len(parts) < 6 {
			continue
		}
		table.Rows = append(table.Rows, Row{
			FieldDate:   parts[0],
			FieldOpen:   parts[1],
			FieldClose:  parts[2],
			FieldHigh:   parts[3],
			FieldLow:    parts[4],
			FieldVolume: parts[5],
		})
	}
	return table, nil
}

// fetchDividends returns the per-share cash dividend history for code.
// Eastmoney reports 每股派息 per 10 shares; normalization divides by 10.
func (e *Eastmoney) fetchDividends(ctx context.Context, code string) (*Table, error) {
	raw, err := e.datacenter(ctx, "RPT_SHAREBONUS_DET", code, map[string]string{
		"REPORT_DATE":  FieldPeriod,
		"PRETAX_BONUS": FieldDividendPerShare,
	})
	if err != nil {
		return nil, err
	}
	for _, row := range raw.Rows {
		per10 := row.Float(FieldDividendPerShare, 0)
		row[FieldDividendPerShare] = strconv.FormatFloat(per10/10, 'f', -1, 64)
	}
	return raw, nil
}

// datacenter queries one datacenter-web report, paging through results and
// renaming raw columns onto canonical fields. An empty code skips the
// per-security filter (bulk datasets).
func (e *Eastmoney) datacenter(ctx context.Context, report, code string, fields map[string]string) (*Table, error) {
	table := &Table{}
	for _, canonical := range fields {
		table.Columns = append(table.Columns, canonical)
	}

	for page := 1; page <= 40; page++ {
		params := url.Values{}
		params.Set("reportName", report)
		params.Set("pageNumber", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(listPageSize))
		if _, ok := fields["REPORT_DATE"]; ok {
			// Newest-first; statement predicates rely on this ordering.
			params.Set("sortTypes", "-1")
			params.Set("sortColumns", "REPORT_DATE")
		}
		if code != "" {
			params.Set("filter", fmt.Sprintf(`(SECURITY_CODE="%s")`, code))
		}

		body, err := e.get(ctx, eastmoneyDataCenterURL, params)
		if err != nil {
			return nil, err
		}
		if !gjson.GetBytes(body, "success").Bool() {
			return nil, fmt.Errorf("eastmoney: report %s rejected: %s", report, gjson.GetBytes(body, "message").String())
		}
		items := gjson.GetBytes(body, "result.data").Array()
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			row := Row{}
			for raw, canonical := range fields {
				val := item.Get(raw)
				if !val.Exists() {
					continue
				}
				s := val.String()
				if canonical == FieldCode {
					s = padCode(s)
				}
				row[canonical] = s
			}
			table.Rows = append(table.Rows, row)
		}
		if len(items) < listPageSize {
			break
		}
	}
	return table, nil
}

// secID maps a 6-character code to the push2 secid form: Shanghai codes
// (6xxxxx) get market 1, everything else market 0.
func secID(code string) string {
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

// padCode normalizes a raw security code to the canonical 6-character form,
// stripping exchange prefixes and zero-padding.
func padCode(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimPrefix(raw, "sh")
	raw = strings.TrimPrefix(raw, "sz")
	raw = strings.TrimPrefix(raw, "bj")
	if len(raw) > 6 {
		raw = raw[:6]
	}
	for len(raw) < 6 {
		raw = "0" + raw
	}
	return raw
}
