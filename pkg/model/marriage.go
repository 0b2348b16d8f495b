package model

import "fmt"

// MarriageStatus distinguishes current from past marriages. Only current
// marriages produce spouse adjacency and spouse connections.
type MarriageStatus string

const (
	MarriageCurrent MarriageStatus = "current"
	MarriagePast    MarriageStatus = "past"
)

// Marriage is an undirected edge between two person records.
type Marriage struct {
	A      PersonID       `json:"a"`
	B      PersonID       `json:"b"`
	Status MarriageStatus `json:"status"`

	// SpouseOrder positions this marriage among a person's concurrent
	// marriages. Ties break on the partner id.
	SpouseOrder int `json:"spouse_order"`
}

// Key returns a direction-independent identity for the edge; (a,b) and (b,a)
// produce the same key.
func (m Marriage) Key() string {
	a, b := m.A, m.B
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// Other returns the partner of id in this marriage.
func (m Marriage) Other(id PersonID) PersonID {
	if m.A == id {
		return m.B
	}
	return m.A
}

// Validate rejects degenerate edges.
func (m Marriage) Validate() error {
	if m.A == "" || m.B == "" {
		return fmt.Errorf("marriage %s: empty endpoint", m.Key())
	}
	if m.A == m.B {
		return fmt.Errorf("marriage %s: endpoints are the same person", m.Key())
	}
	switch m.Status {
	case MarriageCurrent, MarriagePast:
	default:
		return fmt.Errorf("marriage %s: unrecognized status %q", m.Key(), m.Status)
	}
	return nil
}
