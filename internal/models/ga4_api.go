package models

import "strings"

// GA4Request is the POST /ga4 body. It carries either a structured query or
// a free-text message. The singular metric/dimension fields are accepted for
// older clients and folded into the lists.
type GA4Request struct {
	Metrics    []string          `json:"metrics,omitempty"`
	Dimensions []string          `json:"dimensions,omitempty"`
	Metric     string            `json:"metric,omitempty"`
	Dimension  string            `json:"dimension,omitempty"`
	StartDate  string            `json:"startDate,omitempty"`
	EndDate    string            `json:"endDate,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// Query folds the request into the list-based QueryRequest.
func (r GA4Request) Query() QueryRequest {
	return QueryRequest{
		Metrics:    mergeNames(r.Metrics, r.Metric),
		Dimensions: mergeNames(r.Dimensions, r.Dimension),
		StartDate:  strings.TrimSpace(r.StartDate),
		EndDate:    strings.TrimSpace(r.EndDate),
		Filters:    r.Filters,
	}
}

// HasStructuredQuery reports whether every field required by the structured
// path is present: metrics, dimensions and both dates.
func (r GA4Request) HasStructuredQuery() bool {
	q := r.Query()
	return len(q.Metrics) > 0 && len(q.Dimensions) > 0 && q.StartDate != "" && q.EndDate != ""
}

// HasAnyStructuredField reports whether the caller attempted a structured query.
func (r GA4Request) HasAnyStructuredField() bool {
	return len(r.Metrics) > 0 || len(r.Dimensions) > 0 || r.Metric != "" || r.Dimension != "" ||
		r.StartDate != "" || r.EndDate != "" || len(r.Filters) > 0
}

// mergeNames trims names, drops empties and appends single when it is not
// already listed.
func mergeNames(list []string, single string) []string {
	out := make([]string, 0, len(list)+1)
	for _, n := range list {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	if single = strings.TrimSpace(single); single != "" {
		for _, n := range out {
			if n == single {
				return out
			}
		}
		out = append(out, single)
	}
	return out
}
