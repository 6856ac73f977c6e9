package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Registry holds the allow-lists of GA4 field names accepted by the pipeline.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	metrics    map[string]struct{}
	dimensions map[string]struct{}
	filterKeys map[string]struct{}
}

// AllowListFile is the on-disk shape accepted by LoadFile.
type AllowListFile struct {
	Metrics    []string `yaml:"metrics"`
	Dimensions []string `yaml:"dimensions"`
	// FilterKeys restricts which dimensions may be filtered on.
	// Empty means every allowed dimension.
	FilterKeys []string `yaml:"filter_keys"`
}

var defaultMetrics = []string{
	"activeUsers",
	"newUsers",
	"totalUsers",
	"sessions",
	"engagedSessions",
	"engagementRate",
	"bounceRate",
	"averageSessionDuration",
	"sessionsPerUser",
	"screenPageViews",
	"screenPageViewsPerSession",
	"eventCount",
	"conversions",
	"keyEvents",
	"userEngagementDuration",
	"totalRevenue",
}

var defaultDimensions = []string{
	"city",
	"country",
	"region",
	"continent",
	"language",
	"date",
	"dayOfWeek",
	"deviceCategory",
	"browser",
	"operatingSystem",
	"platform",
	"pagePath",
	"pageTitle",
	"landingPage",
	"hostName",
	"eventName",
	"sessionSource",
	"sessionMedium",
	"sessionCampaignName",
	"sessionDefaultChannelGroup",
	"firstUserSource",
	"newVsReturning",
}

// New builds a registry. When filterKeys is empty the dimension list is used.
func New(metrics, dimensions, filterKeys []string) *Registry {
	r := &Registry{
		metrics:    toSet(metrics),
		dimensions: toSet(dimensions),
	}
	if len(filterKeys) == 0 {
		r.filterKeys = r.dimensions
	} else {
		r.filterKeys = toSet(filterKeys)
	}
	return r
}

// Default returns the built-in GA4 allow-lists.
func Default() *Registry {
	return New(defaultMetrics, defaultDimensions, nil)
}

// LoadFile reads allow-lists from a YAML file. An empty path yields Default().
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow-list file: %w", err)
	}
	var f AllowListFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse allow-list file %s: %w", path, err)
	}
	if len(f.Metrics) == 0 {
		return nil, fmt.Errorf("allow-list file %s must declare at least one metric", path)
	}
	if len(f.Dimensions) == 0 {
		return nil, fmt.Errorf("allow-list file %s must declare at least one dimension", path)
	}
	for _, k := range f.FilterKeys {
		if !contains(f.Dimensions, k) {
			return nil, fmt.Errorf("filter key %q is not an allowed dimension", k)
		}
	}
	return New(f.Metrics, f.Dimensions, f.FilterKeys), nil
}

func (r *Registry) IsValidMetric(name string) bool {
	_, ok := r.metrics[name]
	return ok
}

func (r *Registry) IsValidDimension(name string) bool {
	_, ok := r.dimensions[name]
	return ok
}

// IsValidFilterKey reports whether name may be used as a filter key.
// Filters always key on dimensions, never on metrics.
func (r *Registry) IsValidFilterKey(name string) bool {
	_, ok := r.filterKeys[name]
	return ok
}

// Metrics returns the sorted metric allow-list.
func (r *Registry) Metrics() []string { return sortedKeys(r.metrics) }

// Dimensions returns the sorted dimension allow-list.
func (r *Registry) Dimensions() []string { return sortedKeys(r.dimensions) }

// FilterKeys returns the sorted filter-key allow-list.
func (r *Registry) FilterKeys() []string { return sortedKeys(r.filterKeys) }

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
