package analysis_test

import (
	"grievance/backend/internal/analysis"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		category  string
		urgency   string
		slaHours  int
		resolveIn string
	}{
		{"Harassment", "High", 24, "1 working day"},
		{"sexual HARASSMENT in lab", "High", 24, "1 working day"},
		{"Threat to safety", "High", 24, "1 working day"},
		{"Academic", "Medium", 72, "3 working days"},
		{"hostel mess", "Medium", 72, "3 working days"},
		{"Infrastructure", "Low", 120, "5 working days"},
		{"", "Low", 120, "5 working days"},
		// harassment/threat are checked before academic/hostel
		{"hostel harassment", "High", 24, "1 working day"},
		{"academic threat", "High", 24, "1 working day"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			tier := analysis.Classify(tt.category)
			assert.Equal(t, tt.urgency, tier.Urgency)
			assert.Equal(t, tt.slaHours, tier.SLAHours)
			assert.Equal(t, tt.resolveIn, tier.ResolveIn)
		})
	}
}
