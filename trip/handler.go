package trip

import (
	"fmt"
	"strings"
)

// Handler collects trips for one component over the life of a session.
//
// Stumbles and trips are kept apart so a batch that lost a single file does
// not read like a failed operation in the summary.
type Handler struct {
	component string
	trips     []*Trip
	stumbles  []*Trip
	last      *Trip
	policy    *Policy
}

// Policy defines when accumulated trips should stop the session.
type Policy struct {
	// StopOnFall stops the session on the first Fall trip
	StopOnFall bool

	// MaxStumbles caps the stumbles kept in memory; older ones are dropped
	MaxStumbles int
}

// DefaultPolicy returns the policy used by interactive sessions.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnFall:  true,
		MaxStumbles: 256,
	}
}

// NewHandler creates a new trip handler for a component.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		trips:     make([]*Trip, 0),
		stumbles:  make([]*Trip, 0),
		policy:    policy,
	}
}

// Record adds a trip to the handler. Nil trips are ignored.
func (h *Handler) Record(t *Trip) {
	if t == nil {
		return
	}
	if t.Severity == Stumble {
		h.stumbles = append(h.stumbles, t)
		if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
			h.stumbles = h.stumbles[len(h.stumbles)-h.policy.MaxStumbles:]
		}
	} else {
		h.trips = append(h.trips, t)
	}
	h.last = t
}

// RecordErr records err if it carries a Trip, or wraps it as an Error trip of
// the given kind otherwise.
func (h *Handler) RecordErr(kind Kind, op string, err error) *Trip {
	if err == nil {
		return nil
	}
	t, ok := As(err)
	if !ok {
		t = New(kind, op, op+" failed", err, nil)
	}
	h.Record(t)
	return t
}

// ShouldContinue reports whether the session can keep running.
func (h *Handler) ShouldContinue() bool {
	if h.policy.StopOnFall {
		for _, t := range h.trips {
			if t.IsFall() {
				return false
			}
		}
	}
	return true
}

// HasTrips returns true if any non-stumble trips were recorded.
func (h *Handler) HasTrips() bool {
	return len(h.trips) > 0
}

// Trips returns all recorded non-stumble trips.
func (h *Handler) Trips() []*Trip {
	return h.trips
}

// Stumbles returns all recorded stumbles.
func (h *Handler) Stumbles() []*Trip {
	return h.stumbles
}

// Last returns the most recently recorded trip of any severity.
func (h *Handler) Last() *Trip {
	return h.last
}

// Summary provides a one-line overview.
func (h *Handler) Summary() string {
	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] no issues", h.component)
	}

	return fmt.Sprintf("[%s] %d trips, %d stumbles",
		h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport lists every recorded trip and stumble.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	if len(h.trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, t := range h.trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, t.DetailedString()))
		}
	}

	if len(h.stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, s := range h.stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.DetailedString()))
		}
	}

	return report.String()
}
