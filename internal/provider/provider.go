// Package provider defines the upstream data-source contract and the
// canonical tabular payload all adapters normalize into.
package provider

import "context"

// Dataset names a logical upstream dataset. The fetch layer derives cache
// keys and TTLs from these names.
type Dataset string

const (
	DatasetStockList        Dataset = "stock_list"
	DatasetQuote            Dataset = "quote"
	DatasetProfitStatement  Dataset = "profit"
	DatasetBalanceSheet     Dataset = "balance"
	DatasetCashflow         Dataset = "cashflow"
	DatasetDividends        Dataset = "dividend"
	DatasetShareholders     Dataset = "shareholders"
	DatasetControllers      Dataset = "controller_info"
	DatasetPledges          Dataset = "pledge_data"
	DatasetBuybacks         Dataset = "buyback_data"
	DatasetIssuance         Dataset = "additional_issuance"
	DatasetConvertibleBonds Dataset = "conv_bonds"
	DatasetKline            Dataset = "kline"
)

// Provider is a swappable upstream data source. Fetch returns the named
// dataset normalized to canonical field names; args carry the entity code
// and any dataset-specific parameters (kline date range), or nothing for
// bulk datasets.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ds Dataset, args ...string) (*Table, error)
}
