package agenda

import (
	"time"

	"github.com/sga/sga/internal/platform/apperr"
)

// DefaultWindow bounds the schedule of a prescription without an end.
const DefaultWindow = 168 * time.Hour

const (
	// MaxWindow bounds the period between dataInicio and dataFim.
	MaxWindow = 5 * 366 * 24 * time.Hour
	// MaxEvents caps the schedule of one prescription: a year of hourly doses.
	MaxEvents = 366 * 24
)

// GenerateSchedule returns the planned times of a prescription: start, then
// every frequencyHours up to and including end, or start+DefaultWindow when
// end is nil. The first time is always start.
func GenerateSchedule(start time.Time, end *time.Time, frequencyHours int) ([]time.Time, error) {
	if frequencyHours <= 0 {
		return nil, apperr.Validation("frequenciaHoras must be a positive number of hours, got %d", frequencyHours)
	}
	limit := start.Add(DefaultWindow)
	if end != nil {
		if end.Before(start) {
			return nil, apperr.Validation("dataFim must not be before dataInicio")
		}
		if end.After(start.Add(MaxWindow)) {
			return nil, apperr.Validation("dataFim must be at most %d days after dataInicio", MaxWindow/(24*time.Hour))
		}
		limit = *end
	}

	// A frequency wider than the window yields start alone. Past this check
	// the step is at most MaxWindow and cannot overflow.
	spanHours := int64(limit.Sub(start) / time.Hour)
	if int64(frequencyHours) > spanHours {
		return []time.Time{start}, nil
	}
	step := time.Duration(frequencyHours) * time.Hour
	count := spanHours/int64(frequencyHours) + 1
	if count > MaxEvents {
		return nil, apperr.Validation("schedule would have %d events, the limit is %d; shorten the period or raise frequenciaHoras", count, MaxEvents)
	}

	times := make([]time.Time, 0, count)
	for cursor := start; !cursor.After(limit); cursor = cursor.Add(step) {
		times = append(times, cursor)
	}
	return times, nil
}

func newEvents(p *Prescription, times []time.Time) []*ScheduleEvent {
	events := make([]*ScheduleEvent, len(times))
	for i, t := range times {
		events[i] = &ScheduleEvent{PrescriptionID: p.ID, PlannedAt: t, Status: StatusPending}
	}
	return events
}
