// Package deadline computes resolution deadlines in business hours.
//
// Business hours run from 09:00 to 17:00, Monday to Friday, in a fixed UTC+05:30 zone.
// A submission outside business hours starts the clock at the next opening. SLA hours
// are then consumed one by one; the hour that reaches 17:00 moves the clock to the next
// business day at 09:00 and is counted as spent.
package deadline

import (
	"grievance/backend/internal/config"
	"time"
)

// Location is the fixed zone all deadline arithmetic happens in. No DST.
var Location = time.FixedZone(config.DeadlineZoneName, config.DeadlineZoneOffset)

const (
	dayStart = config.BusinessDayStartHour * time.Hour
	dayEnd   = config.BusinessDayEndHour * time.Hour

	// hoursPerDay is how many SLA hours a full business day absorbs, counting the
	// jump at 17:00.
	hoursPerDay = config.BusinessDayEndHour - config.BusinessDayStartHour
)

// Compute returns the instant by which a complaint submitted at submittedAt with
// slaHours business hours must be resolved. slaHours <= 0 yields the adjusted start.
func Compute(submittedAt time.Time, slaHours int) time.Time {
	start := AdjustStart(submittedAt)
	if slaHours <= 0 {
		return start
	}

	// Hours that fit before the first jump.
	sinceMidnight := timeOfDay(start)
	fit := int((dayEnd-sinceMidnight+time.Hour-1)/time.Hour) - 1
	if slaHours <= fit {
		return start.Add(time.Duration(slaHours) * time.Hour)
	}

	remaining := slaHours - (fit + 1)
	t := nextBusinessMorning(start)
	for ; remaining >= hoursPerDay; remaining -= hoursPerDay {
		t = nextBusinessMorning(t)
	}
	return t.Add(time.Duration(remaining) * time.Hour)
}

// AdjustStart moves t to the moment the SLA clock starts running.
func AdjustStart(t time.Time) time.Time {
	t = t.In(Location)
	switch {
	case t.Weekday() == time.Saturday:
		return morningOf(t.AddDate(0, 0, 2))
	case t.Weekday() == time.Sunday:
		return morningOf(t.AddDate(0, 0, 1))
	case timeOfDay(t) >= dayEnd:
		return nextBusinessMorning(t)
	case timeOfDay(t) < dayStart:
		return morningOf(t)
	}
	return t
}

// IsBusinessTime reports whether t falls inside [09:00, 17:00) on a weekday.
func IsBusinessTime(t time.Time) bool {
	t = t.In(Location)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	tod := timeOfDay(t)
	return tod >= dayStart && tod < dayEnd
}

func nextBusinessMorning(t time.Time) time.Time {
	days := 1
	if t.Weekday() == time.Friday {
		days = 3
	}
	return morningOf(t.AddDate(0, 0, days))
}

func morningOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, config.BusinessDayStartHour, 0, 0, 0, Location)
}

func timeOfDay(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}
