package summariser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/platformbuilds/ga4-insights/internal/models"
)

// MaxFallbackRows caps how many rows FallbackText prints.
const MaxFallbackRows = 50

// toolResult is the payload handed back to the model as the tool output.
type toolResult struct {
	Rows     []models.NormalizedRow `json:"rows"`
	Insights []string               `json:"insights"`
}

// ToolResult encodes the report as the tool output for the summarization call.
// Empty results encode as empty arrays, never null.
func ToolResult(result *models.QueryResult) ([]byte, error) {
	payload := toolResult{Rows: []models.NormalizedRow{}, Insights: []string{}}
	if result != nil {
		if result.Rows != nil {
			payload.Rows = result.Rows
		}
		if result.Insights != nil {
			payload.Insights = result.Insights
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return data, nil
}

// FallbackText renders rows and insights as plain text. Keys within a row are
// printed in sorted order so the output is stable.
func FallbackText(result *models.QueryResult) string {
	var b strings.Builder
	if result == nil || len(result.Rows) == 0 {
		b.WriteString("No rows returned.")
	} else {
		fmt.Fprintf(&b, "%d rows:", len(result.Rows))
		for i, row := range result.Rows {
			if i == MaxFallbackRows {
				fmt.Fprintf(&b, "\n... and %d more rows", len(result.Rows)-MaxFallbackRows)
				break
			}
			b.WriteString("\n- ")
			b.WriteString(formatRow(row))
		}
	}

	if result != nil && len(result.Insights) > 0 {
		b.WriteString("\nInsights:")
		for _, in := range result.Insights {
			b.WriteString("\n- ")
			b.WriteString(in)
		}
	}
	return b.String()
}

func formatRow(row models.NormalizedRow) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + row[k]
	}
	return strings.Join(parts, ", ")
}
