package domain

import "fmt"

// FilterValueSelf used as a skill filter value stands for the type id of the
// holder carrying the modifier.
const FilterValueSelf int32 = -1

// AttributeReader exposes computed attribute values of a single holder.
type AttributeReader interface {
	Get(attr AttrID) (float64, error)
}

// SourceRef names an attribute a scripted modification reads, relative to the
// carrier of the modifier (LocationSelf) or its fit (LocationShip,
// LocationCharacter).
type SourceRef struct {
	Location Location
	Attr     AttrID
}

// Modification computes the operator and value of a modifier at calculation
// time instead of reading a fixed source attribute. ship is nil when the fit
// has no ship.
type Modification interface {
	Modify(carrier, ship AttributeReader) (Operator, float64, error)
	DependsOn() []SourceRef
}

// Modifier describes how one effect influences one target attribute. Values
// are immutable once built and are always shared by pointer.
type Modifier struct {
	Filter      FilterKind
	Location    Location
	FilterValue int32
	TargetAttr  AttrID
	SourceAttr  AttrID
	Operator    Operator
	Scope       Scope
	Instant     bool
	Dynamic     Modification
}

// Projected reports whether the modifier applies outside its owner's fit.
func (m *Modifier) Projected() bool {
	return m.Scope == ScopeProjected
}

// Tracked reports whether the modifier takes part in attribute calculation.
// Gang, projected and one-shot modifiers are carried but not tracked.
func (m *Modifier) Tracked() bool {
	return m.Scope == ScopeLocal && !m.Instant
}

func (m *Modifier) String() string {
	return fmt.Sprintf("%s[%s:%d] %s %d->%d", m.Filter, m.Location, m.FilterValue, m.Operator, m.SourceAttr, m.TargetAttr)
}

// Validate checks the filter, location and attribute combination.
func (m *Modifier) Validate() error {
	if m.TargetAttr == 0 {
		return &DataError{Reason: "modifier has no target attribute", Modifier: m}
	}
	if m.Dynamic == nil {
		if m.SourceAttr == 0 {
			return &DataError{Reason: "modifier has no source attribute", Modifier: m}
		}
		if !m.Operator.Valid() {
			return &DataError{Reason: "modifier operator is unknown", Modifier: m}
		}
	}
	switch m.Filter {
	case FilterNone:
		switch m.Location {
		case LocationSelf, LocationCharacter, LocationShip, LocationTarget, LocationOther:
		default:
			return &DataError{Reason: fmt.Sprintf("direct modifier cannot target location %s", m.Location), Modifier: m}
		}
		if m.FilterValue != 0 {
			return &DataError{Reason: "direct modifier carries a filter value", Modifier: m}
		}
	case FilterAll:
		if !filterableLocation(m.Location) {
			return &DataError{Reason: fmt.Sprintf("filtered modifier cannot target location %s", m.Location), Modifier: m}
		}
		if m.FilterValue != 0 {
			return &DataError{Reason: "location modifier carries a filter value", Modifier: m}
		}
	case FilterGroup:
		if !filterableLocation(m.Location) {
			return &DataError{Reason: fmt.Sprintf("filtered modifier cannot target location %s", m.Location), Modifier: m}
		}
		if m.FilterValue <= 0 {
			return &DataError{Reason: "group modifier needs a group id", Modifier: m}
		}
	case FilterSkill:
		if !filterableLocation(m.Location) {
			return &DataError{Reason: fmt.Sprintf("filtered modifier cannot target location %s", m.Location), Modifier: m}
		}
		if m.FilterValue <= 0 && m.FilterValue != FilterValueSelf {
			return &DataError{Reason: "skill modifier needs a skill id", Modifier: m}
		}
	case FilterOwnerSkill:
		if m.Location != LocationCharacter {
			return &DataError{Reason: "owner skill modifier must target character", Modifier: m}
		}
		if m.FilterValue <= 0 && m.FilterValue != FilterValueSelf {
			return &DataError{Reason: "owner skill modifier needs a skill id", Modifier: m}
		}
	default:
		return &DataError{Reason: fmt.Sprintf("unknown filter %s", m.Filter), Modifier: m}
	}
	return nil
}

func filterableLocation(l Location) bool {
	switch l {
	case LocationSelf, LocationCharacter, LocationShip, LocationSpace:
		return true
	}
	return false
}

// Effect groups the modifiers an item type applies while the effect runs.
type Effect struct {
	ID        EffectID
	Name      string
	Category  EffectCategory
	Modifiers []*Modifier
}

// State returns the holder state the effect needs to run.
func (e *Effect) State() State {
	return e.Category.State()
}
