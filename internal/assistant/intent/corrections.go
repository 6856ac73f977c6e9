package intent

import (
	"sort"

	"github.com/platformbuilds/ga4-insights/internal/schema"
)

// Correction tables, keyed by the folded (lower-case, whitespace-free)
// spelling. Every value is a canonical GA4 API name from the default
// allow-lists. The tables are fixed; an allow-list file that drops one of
// these names makes its corrections fail validation instead. See Unlisted.

var metricCorrections = map[string]string{
	"activeusers":               "activeUsers",
	"newusers":                  "newUsers",
	"totalusers":                "totalUsers",
	"sessions":                  "sessions",
	"engagedsessions":           "engagedSessions",
	"engagementrate":            "engagementRate",
	"bouncerate":                "bounceRate",
	"averagesessionduration":    "averageSessionDuration",
	"avgsessionduration":        "averageSessionDuration",
	"sessionsperuser":           "sessionsPerUser",
	"screenpageviews":           "screenPageViews",
	"pageviews":                 "screenPageViews",
	"screenpageviewspersession": "screenPageViewsPerSession",
	"eventcount":                "eventCount",
	"conversions":               "conversions",
	"keyevents":                 "keyEvents",
	"userengagementduration":    "userEngagementDuration",
	"totalrevenue":              "totalRevenue",
}

var dimensionCorrections = map[string]string{
	"city":                       "city",
	"country":                    "country",
	"region":                     "region",
	"continent":                  "continent",
	"language":                   "language",
	"date":                       "date",
	"dayofweek":                  "dayOfWeek",
	"devicecategory":             "deviceCategory",
	"device":                     "deviceCategory",
	"browser":                    "browser",
	"operatingsystem":            "operatingSystem",
	"platform":                   "platform",
	"pagepath":                   "pagePath",
	"pagetitle":                  "pageTitle",
	"landingpage":                "landingPage",
	"hostname":                   "hostName",
	"eventname":                  "eventName",
	"sessionsource":              "sessionSource",
	"sessionmedium":              "sessionMedium",
	"sessioncampaignname":        "sessionCampaignName",
	"sessiondefaultchannelgroup": "sessionDefaultChannelGroup",
	"firstusersource":            "firstUserSource",
	"newvsreturning":             "newVsReturning",
}

// Unlisted returns the correction targets that r does not allow, sorted and
// prefixed with "metric:" or "dimension:".
func Unlisted(r *schema.Registry) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(kind, name string) {
		key := kind + ":" + name
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	for _, m := range metricCorrections {
		if !r.IsValidMetric(m) {
			add("metric", m)
		}
	}
	for _, d := range dimensionCorrections {
		if !r.IsValidDimension(d) {
			add("dimension", d)
		}
	}
	sort.Strings(out)
	return out
}
