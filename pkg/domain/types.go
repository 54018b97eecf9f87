// Package domain defines the value types, modifier records, catalog contracts
// and rule evaluation primitives used by fitcore.
package domain

import (
	"fmt"
	"strings"
)

// AttrID identifies an attribute definition.
type AttrID int32

// TypeID identifies an item type (ships, modules, skills, ...).
type TypeID int32

// EffectID identifies an effect definition.
type EffectID int32

// GroupID identifies the group an item type belongs to.
type GroupID int32

// CategoryID identifies the category an item type belongs to.
type CategoryID int32

// State is the activation state of a holder. States are ordered: a holder in
// a given state is also considered to be in every lower state.
type State int8

// Supported holder states in ascending order.
const (
	StateOffline State = iota
	StateOnline
	StateActive
	StateOverload
)

var stateNames = [...]string{"offline", "online", "active", "overload"}

func (s State) String() string {
	if s < StateOffline || s > StateOverload {
		return fmt.Sprintf("state(%d)", int8(s))
	}
	return stateNames[s]
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s >= StateOffline && s <= StateOverload
}

// States returns every state lower than or equal to upTo in ascending order.
func States(upTo State) []State {
	out := make([]State, 0, int(upTo)+1)
	for s := StateOffline; s <= upTo && s <= StateOverload; s++ {
		out = append(out, s)
	}
	return out
}

// ParseState converts a state name into a State.
func ParseState(name string) (State, error) {
	if name == "" {
		return StateOffline, nil
	}
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return StateOffline, fmt.Errorf("unknown state %q", name)
}

// Location classifies where a holder lives and where a modifier points.
type Location int8

// Known locations. LocationSelf and LocationTarget/LocationOther are only
// meaningful as modifier targets.
const (
	LocationNone Location = iota
	LocationSelf
	LocationCharacter
	LocationShip
	LocationSpace
	LocationTarget
	LocationOther
)

var locationNames = [...]string{"none", "self", "character", "ship", "space", "target", "other"}

func (l Location) String() string {
	if l < LocationNone || l > LocationOther {
		return fmt.Sprintf("location(%d)", int8(l))
	}
	return locationNames[l]
}

// ParseLocation converts a location name into a Location.
func ParseLocation(name string) (Location, error) {
	if name == "" {
		return LocationNone, nil
	}
	for i, n := range locationNames {
		if strings.EqualFold(n, name) {
			return Location(i), nil
		}
	}
	return LocationNone, fmt.Errorf("unknown location %q", name)
}

// FilterKind selects which holders a modifier affects.
type FilterKind int8

const (
	// FilterNone targets a single holder picked by the modifier location.
	FilterNone FilterKind = iota
	// FilterAll targets every holder in a location.
	FilterAll
	// FilterGroup targets holders in a location belonging to a group.
	FilterGroup
	// FilterSkill targets holders in a location requiring a skill.
	FilterSkill
	// FilterOwnerSkill targets owner-modifiable holders requiring a skill.
	FilterOwnerSkill
)

var filterNames = [...]string{"none", "all", "group", "skill", "owner_skill"}

func (f FilterKind) String() string {
	if f < FilterNone || f > FilterOwnerSkill {
		return fmt.Sprintf("filter(%d)", int8(f))
	}
	return filterNames[f]
}

// ParseFilterKind converts a filter name into a FilterKind.
func ParseFilterKind(name string) (FilterKind, error) {
	if name == "" {
		return FilterNone, nil
	}
	for i, n := range filterNames {
		if strings.EqualFold(n, name) {
			return FilterKind(i), nil
		}
	}
	return FilterNone, fmt.Errorf("unknown filter %q", name)
}

// Operator describes how a modifier value is folded into an attribute. The
// numeric order of the constants is the order operators are applied in.
type Operator int8

const (
	OpPreAssign Operator = iota
	OpPreMul
	OpPreDiv
	OpModAdd
	OpModSub
	OpPostMul
	OpPostDiv
	OpPostPercent
	OpPostAssign

	operatorCount
)

var operatorNames = [...]string{
	"pre_assign", "pre_mul", "pre_div", "mod_add", "mod_sub",
	"post_mul", "post_div", "post_percent", "post_assign",
}

func (o Operator) String() string {
	if !o.Valid() {
		return fmt.Sprintf("operator(%d)", int8(o))
	}
	return operatorNames[o]
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o >= OpPreAssign && o < operatorCount
}

// Multiplicative reports whether o is a multiply or divide operator, the
// only operators subject to stacking penalties.
func (o Operator) Multiplicative() bool {
	switch o {
	case OpPreMul, OpPostMul, OpPreDiv, OpPostDiv:
		return true
	}
	return false
}

// Operators returns every operator in application order.
func Operators() []Operator {
	out := make([]Operator, 0, operatorCount)
	for o := OpPreAssign; o < operatorCount; o++ {
		out = append(out, o)
	}
	return out
}

// ParseOperator converts an operator name into an Operator.
func ParseOperator(name string) (Operator, error) {
	for i, n := range operatorNames {
		if strings.EqualFold(n, name) {
			return Operator(i), nil
		}
	}
	return OpPreAssign, fmt.Errorf("unknown operator %q", name)
}

// Scope tells whether a modifier stays within its fit.
type Scope int8

const (
	ScopeLocal Scope = iota
	ScopeGang
	ScopeProjected
)

var scopeNames = [...]string{"local", "gang", "projected"}

func (s Scope) String() string {
	if s < ScopeLocal || s > ScopeProjected {
		return fmt.Sprintf("scope(%d)", int8(s))
	}
	return scopeNames[s]
}

// ParseScope converts a scope name into a Scope.
func ParseScope(name string) (Scope, error) {
	if name == "" {
		return ScopeLocal, nil
	}
	for i, n := range scopeNames {
		if strings.EqualFold(n, name) {
			return Scope(i), nil
		}
	}
	return ScopeLocal, fmt.Errorf("unknown scope %q", name)
}

// EffectCategory decides the holder state an effect needs to run.
type EffectCategory int8

const (
	CategoryPassive EffectCategory = iota
	CategoryActive
	CategoryTarget
	CategoryArea
	CategoryOnline
	CategoryOverload
	CategoryDungeon
	CategorySystem
)

var effectCategoryNames = [...]string{"passive", "active", "target", "area", "online", "overload", "dungeon", "system"}

func (c EffectCategory) String() string {
	if c < CategoryPassive || c > CategorySystem {
		return fmt.Sprintf("category(%d)", int8(c))
	}
	return effectCategoryNames[c]
}

// ParseEffectCategory converts a category name into an EffectCategory.
func ParseEffectCategory(name string) (EffectCategory, error) {
	if name == "" {
		return CategoryPassive, nil
	}
	for i, n := range effectCategoryNames {
		if strings.EqualFold(n, name) {
			return EffectCategory(i), nil
		}
	}
	return CategoryPassive, fmt.Errorf("unknown effect category %q", name)
}

// State returns the lowest holder state in which effects of this category run.
func (c EffectCategory) State() State {
	switch c {
	case CategoryOnline:
		return StateOnline
	case CategoryActive, CategoryTarget, CategoryArea:
		return StateActive
	case CategoryOverload:
		return StateOverload
	default:
		return StateOffline
	}
}

// EffectMode overrides how a holder decides whether one of its effects runs.
type EffectMode int8

const (
	// ModeStateCompliance runs the effect when the holder state allows it.
	ModeStateCompliance EffectMode = iota
	// ModeForceRun runs the effect regardless of holder state.
	ModeForceRun
	// ModeForceStop never runs the effect.
	ModeForceStop
)

var effectModeNames = [...]string{"state_compliance", "force_run", "force_stop"}

func (m EffectMode) String() string {
	if m < ModeStateCompliance || m > ModeForceStop {
		return fmt.Sprintf("mode(%d)", int8(m))
	}
	return effectModeNames[m]
}

// ParseEffectMode converts a mode name into an EffectMode.
func ParseEffectMode(name string) (EffectMode, error) {
	for i, n := range effectModeNames {
		if strings.EqualFold(n, name) {
			return EffectMode(i), nil
		}
	}
	return ModeStateCompliance, fmt.Errorf("unknown effect mode %q", name)
}
