package report

import (
	"sort"

	"github.com/platformbuilds/ga4-insights/internal/models"
)

// Build maps a validated query into the backend report definition.
// Metric and dimension order is copied exactly: it is the positional contract
// Normalize relies on.
func Build(q models.QueryRequest) models.ReportSpec {
	spec := models.ReportSpec{
		Metrics:    append([]string(nil), q.Metrics...),
		Dimensions: append([]string(nil), q.Dimensions...),
		DateRange: models.DateRange{
			StartDate: q.StartDate,
			EndDate:   q.EndDate,
		},
	}
	if spec.Dimensions == nil {
		spec.Dimensions = []string{}
	}
	spec.DimensionFilter = buildFilter(q.Filters)
	return spec
}

// buildFilter returns nil for no filters. A non-nil expression is always a
// non-empty AND group of case-insensitive substring matches.
func buildFilter(filters map[string]string) *models.FilterExpression {
	if len(filters) == 0 {
		return nil
	}
	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	group := make([]models.FilterExpression, 0, len(fields))
	for _, f := range fields {
		group = append(group, models.FilterExpression{
			Filter: &models.StringFilter{
				FieldName:     f,
				MatchType:     models.MatchTypeContains,
				Value:         filters[f],
				CaseSensitive: false,
			},
		})
	}
	return &models.FilterExpression{AndGroup: group}
}
