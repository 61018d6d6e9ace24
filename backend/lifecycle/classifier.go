// Package lifecycle derives the lifecycle status of a lease contract from its dates.
package lifecycle

import (
	"math"
	"time"
)

// LookaheadDays is the window, in days, in which a lease end or a rent
// readjustment makes a contract Expiring
const LookaheadDays = 45

// Dates holds the lifecycle-relevant calendar dates of a contract
type Dates struct {
	Start            time.Time
	End              time.Time
	NextReadjustment *time.Time
}

// Result is the outcome of a classification
type Result struct {
	Status                Status         `json:"status"`
	DaysUntilLeaseEnd     int            `json:"days_until_lease_end"`
	DaysUntilReadjustment *int           `json:"days_until_readjustment,omitempty"`
	ExpiringReason        ExpiringReason `json:"expiring_reason,omitempty"`
}

// Label returns the display label, including the expiring reason when there is one
func (r Result) Label() string {
	if r.Status == StatusExpiring && r.ExpiringReason != "" {
		return r.Status.Label() + " · " + r.ExpiringReason.Label()
	}
	return r.Status.Label()
}

// Badge returns the badge tone for the result
func (r Result) Badge() string {
	if r.Status == StatusExpiring && r.ExpiringReason == ReasonReadjustmentApproaching {
		return "primary"
	}
	return r.Status.Badge()
}

// Classify derives the status of a contract as of now. Rules are evaluated
// in order and the first match wins:
//
//	now < start                        -> pending
//	now > end                          -> closed
//	0 < days until end <= 45           -> expiring (lease ending)
//	0 < days until readjustment <= 45  -> expiring (readjustment approaching)
//	otherwise                          -> active
//
// Classify does not check that end >= start.
func Classify(now time.Time, d Dates) Result {
	today := CalendarDate(now)
	start := CalendarDate(d.Start)
	end := CalendarDate(d.End)

	res := Result{DaysUntilLeaseEnd: daysBetween(today, end)}
	if d.NextReadjustment != nil {
		days := daysBetween(today, CalendarDate(*d.NextReadjustment))
		res.DaysUntilReadjustment = &days
	}

	switch {
	case today.Before(start):
		res.Status = StatusPending
	case today.After(end):
		res.Status = StatusClosed
	case withinLookahead(res.DaysUntilLeaseEnd):
		res.Status = StatusExpiring
		res.ExpiringReason = ReasonLeaseEnding
	case res.DaysUntilReadjustment != nil && withinLookahead(*res.DaysUntilReadjustment):
		res.Status = StatusExpiring
		res.ExpiringReason = ReasonReadjustmentApproaching
	default:
		res.Status = StatusActive
	}

	return res
}

// ClassifyISO parses ISO 8601 dates and classifies them. A nil or blank
// readjustment date means no readjustment is scheduled.
func ClassifyISO(now time.Time, start, end string, nextReadjustment *string) (Result, error) {
	d, err := ParseDates(start, end, nextReadjustment)
	if err != nil {
		return Result{}, err
	}
	return Classify(now, d), nil
}

// ParseDates parses the three lifecycle dates of a contract
func ParseDates(start, end string, nextReadjustment *string) (Dates, error) {
	var d Dates
	var err error

	if d.Start, err = ParseDate("start", start); err != nil {
		return Dates{}, err
	}
	if d.End, err = ParseDate("end", end); err != nil {
		return Dates{}, err
	}
	if nextReadjustment != nil && *nextReadjustment != "" {
		t, err := ParseDate("next_readjustment", *nextReadjustment)
		if err != nil {
			return Dates{}, err
		}
		d.NextReadjustment = &t
	}

	return d, nil
}

func withinLookahead(days int) bool {
	return days > 0 && days <= LookaheadDays
}

// daysBetween returns ceil((to - from) in days)
func daysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
