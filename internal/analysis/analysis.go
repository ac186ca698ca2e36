// Package analysis classifies grievances by urgency.
// The urgency tier decides the SLA hours that feed the deadline calculation.
package analysis

import (
	"grievance/backend/internal/config"
	"strings"
)

// Classify returns the SLA tier for a free-text category. Keywords are matched
// case-insensitively as substrings, tiers in the order of config.SLATiers.
func Classify(category string) config.SLATier {
	lower := strings.ToLower(category)
	for _, tier := range config.SLATiers {
		if len(tier.Keywords) == 0 {
			return tier
		}
		for _, kw := range tier.Keywords {
			if strings.Contains(lower, kw) {
				return tier
			}
		}
	}
	return config.SLATiers[len(config.SLATiers)-1]
}
