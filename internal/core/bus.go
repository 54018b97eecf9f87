package core

import (
	"fmt"
	"slices"

	"fitcore/pkg/domain"
)

// InstructionKind enumerates the discrete steps a fit mutation is broken
// into.
type InstructionKind int8

const (
	InstrHolderAdd InstructionKind = iota
	InstrHolderRemove
	InstrStatesActivate
	InstrStatesDeactivate
	InstrEffectsActivate
	InstrEffectsDeactivate
	InstrRefreshSource
	InstrAttrValueChanged
)

var instructionNames = [...]string{
	"holder_add", "holder_remove", "states_activate", "states_deactivate",
	"effects_activate", "effects_deactivate", "refresh_source", "attr_value_changed",
}

func (k InstructionKind) String() string {
	if k < InstrHolderAdd || k > InstrAttrValueChanged {
		return fmt.Sprintf("instruction(%d)", int8(k))
	}
	return instructionNames[k]
}

// Instruction is one step delivered to every subscriber of a fit.
type Instruction struct {
	Kind    InstructionKind
	Holder  *Holder
	States  []domain.State
	Effects []domain.EffectID
	Attr    domain.AttrID
	Source  domain.Source
}

// Subscriber receives every instruction of every mutation, in order. Values
// must be comparable so they can be unsubscribed.
type Subscriber interface {
	Notify(in Instruction) error
}

func holderAddedInstructions(h *Holder, effects []domain.EffectID) []Instruction {
	out := []Instruction{
		{Kind: InstrHolderAdd, Holder: h},
		{Kind: InstrStatesActivate, Holder: h, States: domain.States(h.state)},
	}
	if len(effects) > 0 {
		out = append(out, Instruction{Kind: InstrEffectsActivate, Holder: h, Effects: effects})
	}
	return out
}

func holderRemovedInstructions(h *Holder, effects []domain.EffectID) []Instruction {
	var out []Instruction
	if len(effects) > 0 {
		out = append(out, Instruction{Kind: InstrEffectsDeactivate, Holder: h, Effects: effects})
	}
	return append(out,
		Instruction{Kind: InstrStatesDeactivate, Holder: h, States: domain.States(h.state)},
		Instruction{Kind: InstrHolderRemove, Holder: h},
	)
}

func stateChangedInstructions(h *Holder, from, to domain.State, before, after []domain.EffectID) []Instruction {
	var states []domain.State
	lo, hi := min(from, to), max(from, to)
	for s := lo + 1; s <= hi; s++ {
		states = append(states, s)
	}
	started, stopped := effectDiff(before, after)
	var out []Instruction
	if to > from {
		out = append(out, Instruction{Kind: InstrStatesActivate, Holder: h, States: states})
		if len(started) > 0 {
			out = append(out, Instruction{Kind: InstrEffectsActivate, Holder: h, Effects: started})
		}
		return out
	}
	if len(stopped) > 0 {
		out = append(out, Instruction{Kind: InstrEffectsDeactivate, Holder: h, Effects: stopped})
	}
	return append(out, Instruction{Kind: InstrStatesDeactivate, Holder: h, States: states})
}

func effectModeInstructions(h *Holder, before, after []domain.EffectID) []Instruction {
	started, stopped := effectDiff(before, after)
	var out []Instruction
	if len(stopped) > 0 {
		out = append(out, Instruction{Kind: InstrEffectsDeactivate, Holder: h, Effects: stopped})
	}
	if len(started) > 0 {
		out = append(out, Instruction{Kind: InstrEffectsActivate, Holder: h, Effects: started})
	}
	return out
}

// sourceChangedInstructions removes every holder under the old source,
// refreshes, and adds them back with the effects their new types run.
func sourceChangedInstructions(holders []*Holder, src domain.Source, newTypes map[*Holder]*domain.ItemType) []Instruction {
	var out []Instruction
	for _, h := range holders {
		out = append(out, holderRemovedInstructions(h, h.RunningEffects())...)
	}
	out = append(out, Instruction{Kind: InstrRefreshSource, Source: src})
	for _, h := range holders {
		out = append(out, holderAddedInstructions(h, runningEffects(newTypes[h], h.state, h.EffectMode))...)
	}
	return out
}

func attrChangedInstructions(h *Holder, attr domain.AttrID) []Instruction {
	return []Instruction{{Kind: InstrAttrValueChanged, Holder: h, Attr: attr}}
}

// effectDiff returns the effects present only in after and only in before.
func effectDiff(before, after []domain.EffectID) (started, stopped []domain.EffectID) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			started = append(started, id)
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			stopped = append(stopped, id)
		}
	}
	return started, stopped
}
