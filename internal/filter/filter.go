// Package filter decides which extracted posts enter the corpus.
package filter

import (
	"github.com/starford/ljbook/internal/models"
)

// Reason explains a filter decision.
type Reason string

const (
	Accepted    Reason = "accepted"
	BeforeRange Reason = "before date range"
	AfterRange  Reason = "after date range"
	NotIncluded Reason = "no included tag"
	ExcludedTag Reason = "excluded tag"
)

// Decision is the outcome of Decide.
type Decision struct {
	Accepted bool
	Reason   Reason
	Tag      string // the excluded tag that matched, if any
}

// Filter is an immutable inclusion predicate. Start and End are inclusive;
// a zero bound is open.
type Filter struct {
	start    models.Date
	end      models.Date
	included map[string]struct{}
	excluded map[string]struct{}
}

// New builds a Filter. Tag lists are copied.
func New(start, end models.Date, included, excluded []string) *Filter {
	return &Filter{
		start:    start,
		end:      end,
		included: toSet(included),
		excluded: toSet(excluded),
	}
}

func toSet(tags []string) map[string]struct{} {
	norm := models.NormalizeTags(tags)
	set := make(map[string]struct{}, len(norm))
	for _, t := range norm {
		set[t] = struct{}{}
	}
	return set
}

// Start returns the inclusive lower bound.
func (f *Filter) Start() models.Date { return f.start }

// End returns the inclusive upper bound.
func (f *Filter) End() models.Date { return f.end }

// Decide applies, in order: date range, included tags, excluded tags.
// Exclusion wins over inclusion when a post matches both.
func (f *Filter) Decide(p models.Post) Decision {
	if r, ok := f.checkDate(p.PublishedAt); !ok {
		return Decision{Reason: r}
	}
	if len(f.included) > 0 && !f.anyIncluded(p.Tags) {
		return Decision{Reason: NotIncluded}
	}
	if tag, hit := f.ExcludedHit(p.Tags); hit {
		return Decision{Reason: ExcludedTag, Tag: tag}
	}
	return Decision{Accepted: true, Reason: Accepted}
}

// Accept reports whether p passes the filter.
func (f *Filter) Accept(p models.Post) bool {
	return f.Decide(p).Accepted
}

// InRange reports whether d lies within the inclusive date range.
func (f *Filter) InRange(d models.Date) bool {
	_, ok := f.checkDate(d)
	return ok
}

// BeforeStart reports whether d predates the range start.
func (f *Filter) BeforeStart(d models.Date) bool {
	return !f.start.IsZero() && d.Before(f.start)
}

// ExcludedHit returns the first excluded tag found in tags.
func (f *Filter) ExcludedHit(tags []string) (string, bool) {
	for _, t := range tags {
		if _, ok := f.excluded[t]; ok {
			return t, true
		}
	}
	return "", false
}

func (f *Filter) checkDate(d models.Date) (Reason, bool) {
	if f.BeforeStart(d) {
		return BeforeRange, false
	}
	if !f.end.IsZero() && d.After(f.end) {
		return AfterRange, false
	}
	return Accepted, true
}

func (f *Filter) anyIncluded(tags []string) bool {
	for _, t := range tags {
		if _, ok := f.included[t]; ok {
			return true
		}
	}
	return false
}
