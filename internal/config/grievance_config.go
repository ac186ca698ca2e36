package config

import "time"

const (
	// Business hours, local time at DeadlineZoneOffset.
	BusinessDayStartHour = 9
	BusinessDayEndHour   = 17
	DeadlineZoneName     = "IST"
	DeadlineZoneOffset   = 5*60*60 + 30*60

	// Escalation
	AutoEscalationReason = "Resolution deadline was missed."
	AutoEscalationRemark = "Complaint escalated automatically due to missed deadline."
	SystemActorRole      = "System"

	DefaultEscalationInterval = 15 * time.Minute
	DefaultOTPTTL             = 10 * time.Minute
	DefaultJWTTTL             = 24 * time.Hour
)

// SLATier is one row of the urgency table used at submission time.
type SLATier struct {
	Urgency   string
	SLAHours  int
	ResolveIn string
	Keywords  []string
}

// SLATiers are checked in order; the last tier has no keywords and catches everything else.
var SLATiers = []SLATier{
	{Urgency: "High", SLAHours: 24, ResolveIn: "1 working day", Keywords: []string{"harassment", "threat"}},
	{Urgency: "Medium", SLAHours: 72, ResolveIn: "3 working days", Keywords: []string{"academic", "hostel"}},
	{Urgency: "Low", SLAHours: 120, ResolveIn: "5 working days"},
}
