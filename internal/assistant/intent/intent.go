package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/internal/services"
)

// ToolName is the single tool offered to the model.
const ToolName = "getGa4Report"

// ToolDescription is what the model sees for ToolName.
const ToolDescription = "Query Google Analytics 4 report data segmented by metrics, dimensions and a date range, optionally filtered by dimension values."

// ToolArguments is the argument object the model produces for ToolName.
// Both list and single-name forms are accepted for metrics and dimensions.
type ToolArguments struct {
	Metrics    NameList          `json:"metrics,omitempty" jsonschema:"GA4 metric names such as activeUsers, sessions, bounceRate, engagementRate"`
	Metric     string            `json:"metric,omitempty" jsonschema:"a single GA4 metric name, alternative to metrics"`
	Dimensions NameList          `json:"dimensions,omitempty" jsonschema:"GA4 dimension names such as city, country, deviceCategory; at least one dimension is required"`
	Dimension  string            `json:"dimension,omitempty" jsonschema:"a single GA4 dimension name, alternative to dimensions"`
	StartDate  string            `json:"startDate" jsonschema:"start of the range as YYYY-MM-DD, today, yesterday or NdaysAgo"`
	EndDate    string            `json:"endDate" jsonschema:"end of the range as YYYY-MM-DD, today, yesterday or NdaysAgo"`
	Filters    map[string]string `json:"filters,omitempty" jsonschema:"dimension name to a case-insensitive substring the dimension value must contain"`
}

// NameList decodes from either a JSON array of strings or a single string.
type NameList []string

func (n *NameList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NameList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*n = list
	return nil
}

// Tool returns the tool definition offered to the model.
func Tool() (services.ToolDefinition, error) {
	return services.NewToolDefinition[ToolArguments](ToolName, ToolDescription)
}

// ParseArguments decodes raw tool arguments into a query. Singular and list
// forms are merged and the correction tables are applied. The result is not
// validated.
func ParseArguments(raw json.RawMessage) (models.QueryRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return models.QueryRequest{}, errors.New("empty tool arguments")
	}

	var args ToolArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return models.QueryRequest{}, fmt.Errorf("decode tool arguments: %w", err)
	}

	q := models.GA4Request{
		Metrics:    args.Metrics,
		Metric:     args.Metric,
		Dimensions: args.Dimensions,
		Dimension:  args.Dimension,
		StartDate:  args.StartDate,
		EndDate:    args.EndDate,
		Filters:    args.Filters,
	}.Query()

	return Correct(q)
}

// Correct applies the metric and dimension correction tables to q. Filter
// keys are dimensions and are corrected with the dimension table, in sorted
// key order. Two keys that correct to the same dimension are merged when
// their values agree and rejected otherwise.
func Correct(q models.QueryRequest) (models.QueryRequest, error) {
	q.Metrics = correctAll(q.Metrics, CorrectMetric)
	q.Dimensions = correctAll(q.Dimensions, CorrectDimension)
	if len(q.Filters) == 0 {
		return q, nil
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make(map[string]string, len(q.Filters))
	from := make(map[string]string, len(q.Filters))
	for _, k := range keys {
		c, v := CorrectDimension(k), q.Filters[k]
		if prev, dup := filters[c]; dup && prev != v {
			return models.QueryRequest{}, fmt.Errorf("filters %q and %q both name %s with different values", from[c], k, c)
		}
		filters[c] = v
		from[c] = k
	}
	q.Filters = filters
	return q, nil
}

func correctAll(names []string, correct func(string) string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		c := correct(n)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// CorrectMetric returns the canonical spelling of name when the metric
// table knows it, and the trimmed name otherwise.
func CorrectMetric(name string) string {
	return lookup(metricCorrections, name)
}

// CorrectDimension returns the canonical spelling of name when the dimension
// table knows it, and the trimmed name otherwise.
func CorrectDimension(name string) string {
	return lookup(dimensionCorrections, name)
}

func lookup(table map[string]string, name string) string {
	name = strings.TrimSpace(name)
	if c, ok := table[fold(name)]; ok {
		return c
	}
	return name
}

// fold lower-cases s and removes all whitespace.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
