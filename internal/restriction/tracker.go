// Package restriction validates fits against resource and slot limits. A
// Tracker follows the fit's instruction stream; rules read it through View.
package restriction

import (
	"slices"

	"fitcore/internal/core"
	"fitcore/pkg/domain"
)

// View is the read side rules evaluate against.
type View interface {
	Ship() *core.Holder
	Holders() []*core.Holder
	Active(h *core.Holder, state domain.State) bool
	Running(h *core.Holder, effect domain.EffectID) bool
}

type tracked struct {
	states  map[domain.State]struct{}
	effects map[domain.EffectID]struct{}
}

// Tracker is a fit subscriber recording present holders with their active
// states and running effects.
type Tracker struct {
	fit     *core.Fit
	order   []*core.Holder
	holders map[*core.Holder]*tracked
}

var (
	_ core.Subscriber = (*Tracker)(nil)
	_ View            = (*Tracker)(nil)
)

// NewTracker subscribes to fit and seeds itself with the holders already
// present.
func NewTracker(fit *core.Fit) *Tracker {
	t := &Tracker{fit: fit, holders: make(map[*core.Holder]*tracked)}
	for _, h := range fit.Holders() {
		entry := t.add(h)
		for _, s := range domain.States(h.State()) {
			entry.states[s] = struct{}{}
		}
		for _, id := range h.RunningEffects() {
			entry.effects[id] = struct{}{}
		}
	}
	fit.Subscribe(t)
	return t
}

// Close detaches the tracker from its fit.
func (t *Tracker) Close() {
	t.fit.Unsubscribe(t)
}

// Notify implements core.Subscriber.
func (t *Tracker) Notify(in core.Instruction) error {
	switch in.Kind {
	case core.InstrHolderAdd:
		t.add(in.Holder)
	case core.InstrHolderRemove:
		delete(t.holders, in.Holder)
		t.order = slices.DeleteFunc(t.order, func(h *core.Holder) bool { return h == in.Holder })
	case core.InstrStatesActivate, core.InstrStatesDeactivate:
		entry, ok := t.holders[in.Holder]
		if !ok {
			return nil
		}
		for _, s := range in.States {
			if in.Kind == core.InstrStatesActivate {
				entry.states[s] = struct{}{}
			} else {
				delete(entry.states, s)
			}
		}
	case core.InstrEffectsActivate, core.InstrEffectsDeactivate:
		entry, ok := t.holders[in.Holder]
		if !ok {
			return nil
		}
		for _, id := range in.Effects {
			if in.Kind == core.InstrEffectsActivate {
				entry.effects[id] = struct{}{}
			} else {
				delete(entry.effects, id)
			}
		}
	}
	return nil
}

func (t *Tracker) add(h *core.Holder) *tracked {
	if entry, ok := t.holders[h]; ok {
		return entry
	}
	entry := &tracked{states: make(map[domain.State]struct{}), effects: make(map[domain.EffectID]struct{})}
	t.holders[h] = entry
	t.order = append(t.order, h)
	return entry
}

// Ship returns the fit's ship.
func (t *Tracker) Ship() *core.Holder { return t.fit.Ship() }

// Holders returns tracked holders in the order they joined the fit.
func (t *Tracker) Holders() []*core.Holder { return slices.Clone(t.order) }

// Active reports whether h has activated state.
func (t *Tracker) Active(h *core.Holder, state domain.State) bool {
	entry, ok := t.holders[h]
	if !ok {
		return false
	}
	_, ok = entry.states[state]
	return ok
}

// Running reports whether effect currently runs on h.
func (t *Tracker) Running(h *core.Holder, effect domain.EffectID) bool {
	entry, ok := t.holders[h]
	if !ok {
		return false
	}
	_, ok = entry.effects[effect]
	return ok
}
