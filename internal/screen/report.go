package screen

// StageResult records one executed pipeline stage of the funnel.
type StageResult struct {
	Criterion  string `json:"criterion"`
	Before     int    `json:"before"`
	After      int    `json:"after"`
	Eliminated int    `json:"eliminated"`
}

// Report is the funnel report a completed run produces.
type Report struct {
	TotalInitial     int               `json:"total_initial"`
	Stages           []StageResult     `json:"stages"`
	Passed           []string          `json:"passed"`
	StockNames       map[string]string `json:"stock_names"`
	FinalCount       int               `json:"final_count"`
	SelectedCriteria []CriterionID     `json:"selected_criteria"`
	DataDates        map[string]string `json:"data_dates"`
}

// Progress is one progress event emitted during a run.
type Progress struct {
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	Remaining int    `json:"remaining"`
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)
