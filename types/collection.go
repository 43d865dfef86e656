package types

// CollectionUnit is one (account, region, service) work item. Units are
// constructed by the orchestrator, executed exactly once, then discarded.
type CollectionUnit struct {
	Service   string
	Region    string
	AccountID string
}

// CollectionResult is the outcome of executing one collection unit.
// Count == len(Rows) on success; Rows is empty and Err is set on failure.
type CollectionResult struct {
	Service   string
	SheetName string
	Region    string
	AccountID string
	Rows      []Record
	Count     int
	Err       error
}

// Failed reports whether the unit produced an error instead of rows.
func (r CollectionResult) Failed() bool {
	return r.Err != nil
}

// AccountSummary tallies one account's outcomes across its units.
type AccountSummary struct {
	Resources int `json:"resources"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunSummary is the reporting side artifact of a collection run.
type RunSummary struct {
	TotalResources int                       `json:"total_resources"`
	Units          int                       `json:"units"`
	Succeeded      int                       `json:"succeeded"`
	Failed         int                       `json:"failed"`
	Accounts       map[string]AccountSummary `json:"accounts"`
}
