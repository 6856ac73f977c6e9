package models

// QueryRequest is the internal, list-based form of a GA4 report query.
// It is immutable once built and discarded after the call completes.
type QueryRequest struct {
	Metrics    []string          `json:"metrics" validate:"required,min=1,dive,required"`
	Dimensions []string          `json:"dimensions" validate:"required,min=1,dive,required"`
	StartDate  string            `json:"startDate" validate:"required,gadate"`
	EndDate    string            `json:"endDate" validate:"required,gadate"`
	Filters    map[string]string `json:"filters,omitempty"`
}

// FilterKeys returns the keys of the filter map. Order is unspecified.
func (q QueryRequest) FilterKeys() []string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	return keys
}

// ValidationResult lists every name rejected by the allow-lists, in input order.
type ValidationResult struct {
	InvalidMetrics    []string `json:"invalidMetrics,omitempty"`
	InvalidDimensions []string `json:"invalidDimensions,omitempty"`
	InvalidFilterKeys []string `json:"invalidFilterKeys,omitempty"`
}

// Empty reports whether no invalid names were found.
func (r ValidationResult) Empty() bool {
	return len(r.InvalidMetrics) == 0 && len(r.InvalidDimensions) == 0 && len(r.InvalidFilterKeys) == 0
}

// String match types understood by the GA4 Data API.
const (
	MatchTypeExact    = "EXACT"
	MatchTypeContains = "CONTAINS"
)

// ReportSpec is the backend-facing report definition. Metric and dimension
// order defines the positional layout of the rows the backend returns.
type ReportSpec struct {
	Metrics    []string  `json:"metrics"`
	Dimensions []string  `json:"dimensions"`
	DateRange  DateRange `json:"dateRange"`
	// DimensionFilter is nil when no filters were requested. An empty AND
	// group is never produced.
	DimensionFilter *FilterExpression `json:"dimensionFilter,omitempty"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// FilterExpression is either a conjunction of expressions or a single filter.
type FilterExpression struct {
	AndGroup []FilterExpression `json:"andGroup,omitempty"`
	Filter   *StringFilter      `json:"filter,omitempty"`
}

// StringFilter matches a single dimension against a string value.
type StringFilter struct {
	FieldName     string `json:"fieldName"`
	MatchType     string `json:"matchType"`
	Value         string `json:"value"`
	CaseSensitive bool   `json:"caseSensitive"`
}

// ReportRow is one backend row: values are aligned by position with the
// ReportSpec's dimension and metric lists.
type ReportRow struct {
	DimensionValues []string
	MetricValues    []string
}

// NormalizedRow maps a requested field name to its value for one row.
type NormalizedRow map[string]string

// QueryResult is the outcome of the structured pipeline.
type QueryResult struct {
	Rows     []NormalizedRow `json:"rows"`
	Insights []string        `json:"insights"`
}
