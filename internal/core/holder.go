package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"fitcore/pkg/domain"
)

// Holder is a participant of a fit: it carries attributes and may both
// contribute and receive modifiers.
type Holder struct {
	id              string
	typeID          domain.TypeID
	itemType        *domain.ItemType
	state           domain.State
	location        domain.Location
	ownerModifiable bool
	effectModes     map[domain.EffectID]domain.EffectMode
	fit             *Fit
	attrs           *AttributeMap
}

// HolderOption customises a holder at construction.
type HolderOption func(*Holder)

// WithState sets the initial state.
func WithState(s domain.State) HolderOption {
	return func(h *Holder) { h.state = s }
}

// WithLocation sets where the holder lives for filtered modifiers.
func WithLocation(l domain.Location) HolderOption {
	return func(h *Holder) { h.location = l }
}

// WithOwnerModifiable marks the holder as reachable by owner skill filters.
func WithOwnerModifiable(v bool) HolderOption {
	return func(h *Holder) { h.ownerModifiable = v }
}

// WithID overrides the generated identifier.
func WithID(id string) HolderOption {
	return func(h *Holder) {
		if id != "" {
			h.id = id
		}
	}
}

// NewHolder builds a detached holder of the given type.
func NewHolder(typeID domain.TypeID, opts ...HolderOption) *Holder {
	h := &Holder{
		id:          newID(),
		typeID:      typeID,
		effectModes: make(map[domain.EffectID]domain.EffectMode),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.attrs = newAttributeMap(h)
	return h
}

// NewShip builds a ship holder. Ships are reached through fit.SetShip.
func NewShip(typeID domain.TypeID, opts ...HolderOption) *Holder {
	return NewHolder(typeID, append([]HolderOption{WithState(domain.StateOffline)}, opts...)...)
}

// NewCharacter builds a character holder.
func NewCharacter(typeID domain.TypeID, opts ...HolderOption) *Holder {
	return NewHolder(typeID, append([]HolderOption{WithState(domain.StateOffline)}, opts...)...)
}

// NewModule builds a ship-located holder such as a module or rig.
func NewModule(typeID domain.TypeID, opts ...HolderOption) *Holder {
	return NewHolder(typeID, append([]HolderOption{WithLocation(domain.LocationShip)}, opts...)...)
}

// NewSkill builds a character-located holder. level populates the skill
// level attribute through a manual override.
func NewSkill(typeID domain.TypeID, level int, opts ...HolderOption) *Holder {
	h := NewHolder(typeID, append([]HolderOption{WithLocation(domain.LocationCharacter)}, opts...)...)
	h.attrs.overrides[domain.AttrSkillLevel] = float64(level)
	return h
}

// NewImplant builds a character-located holder.
func NewImplant(typeID domain.TypeID, opts ...HolderOption) *Holder {
	return NewHolder(typeID, append([]HolderOption{WithLocation(domain.LocationCharacter)}, opts...)...)
}

// NewDrone builds a space-located, owner-modifiable holder.
func NewDrone(typeID domain.TypeID, opts ...HolderOption) *Holder {
	return NewHolder(typeID, append([]HolderOption{
		WithLocation(domain.LocationSpace),
		WithOwnerModifiable(true),
	}, opts...)...)
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ID returns the holder identifier.
func (h *Holder) ID() string { return h.id }

// TypeID returns the type the holder was built from.
func (h *Holder) TypeID() domain.TypeID { return h.typeID }

// Type returns the resolved item type, or nil when the holder is detached or
// its type is missing from the source.
func (h *Holder) Type() *domain.ItemType { return h.itemType }

// Loaded reports whether the holder's type was resolved.
func (h *Holder) Loaded() bool { return h.itemType != nil }

// State returns the current state.
func (h *Holder) State() domain.State { return h.state }

// Location returns where the holder lives.
func (h *Holder) Location() domain.Location { return h.location }

// OwnerModifiable reports whether owner skill filters reach the holder.
func (h *Holder) OwnerModifiable() bool { return h.ownerModifiable }

// Fit returns the fit the holder belongs to, if any.
func (h *Holder) Fit() *Fit { return h.fit }

// Attributes returns the holder's value store.
func (h *Holder) Attributes() *AttributeMap { return h.attrs }

// GroupID returns the group of the loaded type.
func (h *Holder) GroupID() domain.GroupID {
	if h.itemType == nil {
		return 0
	}
	return h.itemType.GroupID
}

// CategoryID returns the category of the loaded type.
func (h *Holder) CategoryID() domain.CategoryID {
	if h.itemType == nil {
		return 0
	}
	return h.itemType.CategoryID
}

// EffectMode returns the mode configured for an effect.
func (h *Holder) EffectMode(id domain.EffectID) domain.EffectMode {
	return h.effectModes[id]
}

// RunningEffects lists the effects currently applied by the holder.
func (h *Holder) RunningEffects() []domain.EffectID {
	return runningEffects(h.itemType, h.state, h.EffectMode)
}

func (h *Holder) String() string {
	return fmt.Sprintf("holder(%s type=%d)", h.id, h.typeID)
}

// SetState moves the holder to a new state, starting and stopping the
// effects whose threshold is crossed.
func (h *Holder) SetState(s domain.State) error {
	if !s.Valid() {
		return fmt.Errorf("set state on %s: invalid state %d", h.id, s)
	}
	old := h.state
	if old == s {
		return nil
	}
	before := h.RunningEffects()
	h.state = s
	if h.fit == nil {
		return nil
	}
	return h.fit.dispatch(stateChangedInstructions(h, old, s, before, h.RunningEffects()))
}

// SetEffectMode overrides whether an effect runs.
func (h *Holder) SetEffectMode(id domain.EffectID, mode domain.EffectMode) error {
	if mode < domain.ModeStateCompliance || mode > domain.ModeForceStop {
		return fmt.Errorf("set effect mode on %s: invalid mode %d", h.id, mode)
	}
	if h.EffectMode(id) == mode {
		return nil
	}
	before := h.RunningEffects()
	if mode == domain.ModeStateCompliance {
		delete(h.effectModes, id)
	} else {
		h.effectModes[id] = mode
	}
	if h.fit == nil {
		return nil
	}
	return h.fit.dispatch(effectModeInstructions(h, before, h.RunningEffects()))
}

// runningEffects decides which effects of t run in the given state.
func runningEffects(t *domain.ItemType, state domain.State, mode func(domain.EffectID) domain.EffectMode) []domain.EffectID {
	if t == nil {
		return nil
	}
	var out []domain.EffectID
	for _, eff := range t.Effects {
		switch mode(eff.ID) {
		case domain.ModeForceRun:
			out = append(out, eff.ID)
		case domain.ModeForceStop:
		default:
			if state >= eff.State() {
				out = append(out, eff.ID)
			}
		}
	}
	return out
}
