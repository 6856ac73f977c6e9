package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/platformbuilds/ga4-insights/internal/models"
)

// Rule is one fixed threshold check over the full row set.
type Rule struct {
	Metric string
	// Match reports whether a raw value counts toward the rule. Values that
	// do not parse never match.
	Match  func(raw string) bool
	Format string
}

// Rules is the insight rule table, evaluated in order.
var Rules = []Rule{
	{
		Metric: "bounceRate",
		Match:  floatMatch(func(f float64) bool { return f > 80 }),
		Format: "%d segments have bounce rate above 80%%.",
	},
	{
		Metric: "activeUsers",
		Match:  intMatch(func(n int64) bool { return n < 3 }),
		Format: "%d segments have fewer than 3 active users.",
	},
	{
		Metric: "engagementRate",
		Match:  floatMatch(func(f float64) bool { return f >= 70 }),
		Format: "%d segments have engagement rate ≥ 70%%.",
	},
}

// Insights applies Rules to rows. A rule only runs when its metric was
// requested and only emits text for a non-zero count. The result is never nil.
func Insights(rows []models.NormalizedRow, metrics []string) []string {
	requested := make(map[string]struct{}, len(metrics))
	for _, m := range metrics {
		requested[m] = struct{}{}
	}

	out := []string{}
	for _, rule := range Rules {
		if _, ok := requested[rule.Metric]; !ok {
			continue
		}
		if n := Count(rows, rule); n > 0 {
			out = append(out, fmt.Sprintf(rule.Format, n))
		}
	}
	return out
}

// Count returns how many rows match rule.
func Count(rows []models.NormalizedRow, rule Rule) int {
	n := 0
	for _, row := range rows {
		raw, ok := row[rule.Metric]
		if !ok {
			continue
		}
		if rule.Match(raw) {
			n++
		}
	}
	return n
}

func floatMatch(pred func(float64) bool) func(string) bool {
	return func(raw string) bool {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return false
		}
		return pred(f)
	}
}

func intMatch(pred func(int64) bool) func(string) bool {
	return func(raw string) bool {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return false
		}
		return pred(n)
	}
}
