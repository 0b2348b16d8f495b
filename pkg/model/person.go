// Package model defines the core data types of the tree view: immutable
// person records and marriage edges. Records are value types; any change to
// the underlying dataset is represented by a new record set, never by
// in-place mutation.
package model

import "fmt"

// PersonID uniquely identifies a person record.
type PersonID string

// Gender of a person record. Unknown is a legitimate value for historical
// records, not an error.
type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderUnknown Gender = "unknown"
)

// UnorderedSibling marks a record whose position among its siblings was
// never recorded; it sorts after explicitly ordered siblings.
const UnorderedSibling = int(^uint32(0) >> 1)

// Person is one immutable person record.
type Person struct {
	ID         PersonID `json:"id"`
	ParentID   PersonID `json:"parent_id,omitempty"`
	Generation int      `json:"generation"`
	Gender     Gender   `json:"gender"`
	Name       string   `json:"name"`
	PhotoRef   string   `json:"photo_ref,omitempty"`
	Deceased   bool     `json:"deceased,omitempty"`

	// SiblingOrder is the explicit position among siblings. Layout never
	// falls back to map iteration order.
	SiblingOrder int `json:"sibling_order"`
}

// Root reports whether the record declares no parent.
func (p Person) Root() bool { return p.ParentID == "" }

// Validate rejects records that cannot be laid out. A zero Gender is
// normalized by the data source, not here; an unrecognized value is an
// error.
func (p Person) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("person: empty id")
	}
	if p.ParentID == p.ID {
		return fmt.Errorf("person %s: is its own parent", p.ID)
	}
	if p.Generation < 0 {
		return fmt.Errorf("person %s: negative generation %d", p.ID, p.Generation)
	}
	switch p.Gender {
	case GenderFemale, GenderMale, GenderUnknown:
	default:
		return fmt.Errorf("person %s: unrecognized gender %q", p.ID, p.Gender)
	}
	return nil
}
