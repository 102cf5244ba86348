package services

import (
	"sort"

	"classplanner_go/models"
	"classplanner_go/utils"
)

// PhaseSpan is the resolved date range of one curriculum phase.
type PhaseSpan struct {
	PhaseNumber      int        `json:"phase_number"`
	FirstSessionDate utils.Date `json:"first_session_date"`
	LastSessionDate  utils.Date `json:"last_session_date"`
}

// BuildPhaseSpans derives per-phase date ranges from a class's persisted
// sessions. Cancelled sessions do not contribute. Spans must not overlap:
// overlapping phase boundaries are rejected rather than silently resolved
// by pick-first, so the resolver stays deterministic.
func BuildPhaseSpans(sessions []models.ClassSession) ([]PhaseSpan, error) {
	byPhase := make(map[int]*PhaseSpan)
	for _, session := range sessions {
		if session.Status == SessionStatusCancelled {
			continue
		}
		date := ActualSessionDate(session)
		span, ok := byPhase[session.PhaseNumber]
		if !ok {
			byPhase[session.PhaseNumber] = &PhaseSpan{
				PhaseNumber:      session.PhaseNumber,
				FirstSessionDate: date,
				LastSessionDate:  date,
			}
			continue
		}
		if date.Before(span.FirstSessionDate) {
			span.FirstSessionDate = date
		}
		if date.After(span.LastSessionDate) {
			span.LastSessionDate = date
		}
	}

	spans := make([]PhaseSpan, 0, len(byPhase))
	for _, span := range byPhase {
		spans = append(spans, *span)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].PhaseNumber < spans[j].PhaseNumber })

	for i := 1; i < len(spans); i++ {
		if !spans[i-1].LastSessionDate.Before(spans[i].FirstSessionDate) {
			return nil, NewValidationError("phases", "phase %d overlaps phase %d",
				spans[i-1].PhaseNumber, spans[i].PhaseNumber)
		}
	}

	return spans, nil
}

// ResolveActivePhase determines which phase is current for the given day.
//
// Priority: a phase whose date range contains today; before the class starts,
// the first phase; after a completed phase, the next phase; after everything,
// the final phase. Spans without date information are ignored, and with no
// usable spans at all the resolver falls back to phase 1. It always reports
// an existing phase number (or 1), never "no active phase".
func ResolveActivePhase(today utils.Date, phases []PhaseSpan) int {
	resolved := make([]PhaseSpan, 0, len(phases))
	for _, span := range phases {
		if span.FirstSessionDate.IsZero() || span.LastSessionDate.IsZero() {
			continue
		}
		resolved = append(resolved, span)
	}
	if len(resolved) == 0 {
		if len(phases) > 0 {
			return phases[0].PhaseNumber
		}
		return 1
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].PhaseNumber < resolved[j].PhaseNumber })

	for _, span := range resolved {
		if !today.Before(span.FirstSessionDate) && !today.After(span.LastSessionDate) {
			return span.PhaseNumber
		}
	}

	if today.Before(resolved[0].FirstSessionDate) {
		return resolved[0].PhaseNumber
	}

	// Today falls in a gap or past the end: the latest completed phase hands
	// over to its successor; with no successor the class has ended and the
	// final phase is reported.
	lastCompleted := -1
	for i, span := range resolved {
		if span.LastSessionDate.Before(today) {
			lastCompleted = i
		}
	}
	if lastCompleted >= 0 && lastCompleted+1 < len(resolved) {
		return resolved[lastCompleted+1].PhaseNumber
	}
	return resolved[len(resolved)-1].PhaseNumber
}
