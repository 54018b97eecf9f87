package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle is reported when an attribute ends up depending on itself.
	ErrCycle = errors.New("attribute dependency cycle")
	// ErrDepthExceeded is reported when nested calculations go too deep.
	ErrDepthExceeded = errors.New("attribute calculation depth exceeded")
	// ErrNotLoaded is reported when a holder's type is absent from the source.
	ErrNotLoaded = errors.New("holder type not loaded")
	// ErrAlreadyMember is returned when adding a holder that already has a fit.
	ErrAlreadyMember = errors.New("holder already belongs to a fit")
	// ErrNotMember is returned when removing a holder the fit does not own.
	ErrNotMember = errors.New("holder does not belong to this fit")
)

// ErrNotFound indicates the requested catalog record does not exist.
type ErrNotFound struct {
	Kind string
	ID   int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// DataError reports malformed modifier data or an unsupported target.
type DataError struct {
	Reason   string
	HolderID string
	Modifier *Modifier
}

func (e *DataError) Error() string {
	msg := "data error: " + e.Reason
	if e.HolderID != "" {
		msg += " (holder " + e.HolderID + ")"
	}
	if e.Modifier != nil {
		msg += " in modifier " + e.Modifier.String()
	}
	return msg
}

// NoValueError is returned when an attribute has neither a base value nor a
// default.
type NoValueError struct {
	HolderID string
	Attr     AttrID
}

func (e *NoValueError) Error() string {
	return fmt.Sprintf("attribute %d has no value on holder %s", e.Attr, e.HolderID)
}

// ContributorError records a modifier that was skipped while computing an
// attribute.
type ContributorError struct {
	HolderID string
	Attr     AttrID
	SourceID string
	Modifier *Modifier
	Err      error
}

func (e *ContributorError) Error() string {
	return fmt.Sprintf("contributor %s to attribute %d on holder %s: %v", e.SourceID, e.Attr, e.HolderID, e.Err)
}

func (e *ContributorError) Unwrap() error { return e.Err }
