package vanishing

import (
	"fmt"
	"sort"
)

// Default line filter policy.
const (
	DefaultMinAngle = 10.0
	DefaultMaxAngle = 80.0
	DefaultMaxLines = 13
)

// angleTolerance absorbs atan round-off for segments built at exactly the
// bound angles.
const angleTolerance = 1e-9

// FilterPolicy selects which segments take part in estimation.
type FilterPolicy struct {
	// MinAngle and MaxAngle bound atan(slope) in degrees, both inclusive.
	MinAngle float64
	MaxAngle float64
	// MaxLines caps the number of lines kept; the longest win. Zero means no cap.
	MaxLines int
}

// DefaultFilterPolicy keeps lines between 10° and 80° and at most 13 of them.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		MinAngle: DefaultMinAngle,
		MaxAngle: DefaultMaxAngle,
		MaxLines: DefaultMaxLines,
	}
}

// Validate checks the policy bounds.
func (p FilterPolicy) Validate() error {
	if p.MinAngle < -90 || p.MaxAngle > 90 || p.MinAngle > p.MaxAngle {
		return fmt.Errorf("invalid angle range [%v, %v]", p.MinAngle, p.MaxAngle)
	}
	if p.MaxLines < 0 {
		return fmt.Errorf("max lines must not be negative, got %d", p.MaxLines)
	}
	return nil
}

// Filter drops vertical segments and those whose angle falls outside the
// policy range, then keeps the MaxLines longest when more survive.
//
// Without truncation the input order is preserved. With truncation the result
// is sorted by descending length; equal lengths keep their input order.
func Filter(segments []Segment, p FilterPolicy) []Line {
	var lines []Line
	for _, s := range segments {
		l, ok := NewLine(s)
		if !ok {
			continue
		}
		if l.AngleDegrees < p.MinAngle-angleTolerance || l.AngleDegrees > p.MaxAngle+angleTolerance {
			continue
		}
		lines = append(lines, l)
	}

	if p.MaxLines > 0 && len(lines) > p.MaxLines {
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].Length > lines[j].Length
		})
		lines = lines[:p.MaxLines]
	}
	return lines
}
