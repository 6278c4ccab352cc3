package models

import "time"

// FilterSpec is the active selection. A nil dimension places no
// restriction on rows; an empty non-nil Set excludes every row.
type FilterSpec struct {
	DateRange    *DateRange
	Countries    Set
	Descriptions Set
}

// DateRange is an inclusive window of calendar dates. A zero Start or End
// means that endpoint has not been picked yet.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both endpoints are set.
func (r *DateRange) Complete() bool {
	return r != nil && !r.Start.IsZero() && !r.End.IsZero()
}

// Set is a string membership set.
type Set map[string]struct{}

// NewSet returns a non-nil set holding values. NewSet() is the empty set.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}
