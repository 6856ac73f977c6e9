package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/internal/schema"
)

// Validator checks candidate queries against the schema registry.
// It holds no per-request state and is safe for concurrent use.
type Validator struct {
	registry *schema.Registry
	structs  *validator.Validate
	clock    clockwork.Clock
}

// New returns a Validator using the real clock for relative dates.
func New(registry *schema.Registry) *Validator {
	return NewWithClock(registry, clockwork.NewRealClock())
}

// NewWithClock returns a Validator resolving relative dates against clock.
func NewWithClock(registry *schema.Registry, clock clockwork.Clock) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gadate", func(fl validator.FieldLevel) bool {
		return IsDateToken(fl.Field().String(), clock.Now())
	})
	return &Validator{registry: registry, structs: v, clock: clock}
}

// Validate returns every metric, dimension and filter key that is not in the
// allow-lists. Invalid names keep their input order and appear once; filter
// keys are sorted first since map order carries no meaning.
func (v *Validator) Validate(metrics, dimensions, filterKeys []string) models.ValidationResult {
	keys := append([]string(nil), filterKeys...)
	sort.Strings(keys)
	return models.ValidationResult{
		InvalidMetrics:    rejected(metrics, v.registry.IsValidMetric),
		InvalidDimensions: rejected(dimensions, v.registry.IsValidDimension),
		InvalidFilterKeys: rejected(keys, v.registry.IsValidFilterKey),
	}
}

// ValidateQuery checks required fields, date tokens, date ordering and the
// allow-lists. It returns a *models.ValidationError or nil.
func (v *Validator) ValidateQuery(q models.QueryRequest) error {
	ve := &models.ValidationError{}

	if err := v.structs.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("query validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			ve.Add(fe.Field(), describe(fe))
		}
	}

	for _, k := range sortedKeys(q.Filters) {
		if strings.TrimSpace(q.Filters[k]) == "" {
			ve.Add("filters."+k, "match value cannot be empty")
		}
	}

	now := v.clock.Now()
	start, startErr := ResolveDate(q.StartDate, now)
	end, endErr := ResolveDate(q.EndDate, now)
	if startErr == nil && endErr == nil && start.After(end) {
		ve.Add("startDate", fmt.Sprintf("must not be after endDate (%s > %s)", q.StartDate, q.EndDate))
	}

	ve.Result = v.Validate(q.Metrics, q.Dimensions, q.FilterKeys())
	if ve.Empty() {
		return nil
	}
	return ve
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least one value"
	case "gadate":
		return fmt.Sprintf("invalid date %q: must be YYYY-MM-DD, today, yesterday or NdaysAgo", fe.Value())
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func rejected(names []string, ok func(string) bool) []string {
	var out []string
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if ok(n) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
