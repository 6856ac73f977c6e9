package report

import (
	"fmt"

	"github.com/platformbuilds/ga4-insights/internal/models"
)

// AlignmentError is returned when a backend row carries more values than
// there are requested names, which means the positional layout is broken.
type AlignmentError struct {
	Row    int
	Kind   string // "dimension" | "metric"
	Names  int
	Values int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("misaligned row %d: %d %s values for %d requested names", e.Row, e.Values, e.Kind, e.Names)
}

// Normalize turns column-oriented backend rows into one flat record per row.
// Dimension values are written first and metric values second, so a metric
// wins over a dimension with the same name. Rows with fewer values than names
// leave the trailing keys absent.
func Normalize(rows []models.ReportRow, metrics, dimensions []string) ([]models.NormalizedRow, error) {
	out := make([]models.NormalizedRow, 0, len(rows))
	for i, row := range rows {
		nr := make(models.NormalizedRow, len(dimensions)+len(metrics))
		if err := zipInto(nr, dimensions, row.DimensionValues); err != nil {
			return nil, &AlignmentError{Row: i, Kind: "dimension", Names: len(dimensions), Values: len(row.DimensionValues)}
		}
		if err := zipInto(nr, metrics, row.MetricValues); err != nil {
			return nil, &AlignmentError{Row: i, Kind: "metric", Names: len(metrics), Values: len(row.MetricValues)}
		}
		out = append(out, nr)
	}
	return out, nil
}

// zipInto writes values[i] under names[i]. Requires len(values) <= len(names).
func zipInto(dst models.NormalizedRow, names, values []string) error {
	if len(values) > len(names) {
		return fmt.Errorf("%d values for %d names", len(values), len(names))
	}
	for i, v := range values {
		dst[names[i]] = v
	}
	return nil
}
