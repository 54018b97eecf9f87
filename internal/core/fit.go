// Package core implements the attribute calculation engine: the per-holder
// value stores, the affector registry, stacking penalties and the
// instruction bus that keeps them consistent.
package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"

	"fitcore/pkg/domain"
)

const defaultMaxDepth = 64

// Fit is the aggregate root owning a set of holders and the registry that
// links them. A Fit is not safe for concurrent use.
type Fit struct {
	source     domain.Source
	holders    []*Holder
	ship       *Holder
	character  *Holder
	reg        *registry
	calc       *calculator
	subs       []Subscriber
	logger     *slog.Logger
	metrics    MetricsRecorder
	immune     map[domain.CategoryID]struct{}
	maxDepth   int
	seq        uint64
	inProgress map[slot]struct{}
	depth      int
}

// NewFit constructs an empty fit reading types from src. src may be nil.
func NewFit(src domain.Source, opts ...Option) *Fit {
	f := &Fit{
		source:     src,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    noopMetricsRecorder{},
		maxDepth:   defaultMaxDepth,
		inProgress: make(map[slot]struct{}),
	}
	WithPenaltyImmune(domain.DefaultPenaltyImmune()...)(f)
	for _, opt := range opts {
		opt(f)
	}
	f.reg = newRegistry(f)
	f.calc = newCalculator(f, f.reg)
	return f
}

// Source returns the active source.
func (f *Fit) Source() domain.Source { return f.source }

// Ship returns the ship holder, if any.
func (f *Fit) Ship() *Holder { return f.ship }

// Character returns the character holder, if any.
func (f *Fit) Character() *Holder { return f.character }

// Holders returns the members of the fit in insertion order.
func (f *Fit) Holders() []*Holder { return slices.Clone(f.holders) }

// Add makes h a member of the fit and starts its running effects.
func (f *Fit) Add(h *Holder) error {
	if h == nil {
		return fmt.Errorf("add holder: nil holder")
	}
	if h.fit != nil {
		return fmt.Errorf("add holder %s: %w", h.id, domain.ErrAlreadyMember)
	}
	h.fit = f
	h.itemType = f.loadType(f.source, h.typeID)
	f.holders = append(f.holders, h)
	return f.dispatch(holderAddedInstructions(h, h.RunningEffects()))
}

// Remove stops every running effect of h and drops it from the fit.
func (f *Fit) Remove(h *Holder) error {
	if h == nil || h.fit != f {
		id := "<nil>"
		if h != nil {
			id = h.id
		}
		return fmt.Errorf("remove holder %s: %w", id, domain.ErrNotMember)
	}
	err := f.dispatch(holderRemovedInstructions(h, h.RunningEffects()))
	f.holders = slices.DeleteFunc(f.holders, func(o *Holder) bool { return o == h })
	if f.ship == h {
		f.ship = nil
	}
	if f.character == h {
		f.character = nil
	}
	h.fit = nil
	h.itemType = nil
	return err
}

// SetShip replaces the ship. A nil ship only removes the current one.
func (f *Fit) SetShip(h *Holder) error {
	return f.replace(&f.ship, h)
}

// SetCharacter replaces the character. A nil character only removes the
// current one.
func (f *Fit) SetCharacter(h *Holder) error {
	return f.replace(&f.character, h)
}

func (f *Fit) replace(field **Holder, h *Holder) error {
	if *field == h {
		return nil
	}
	if h != nil && h.fit != nil {
		return fmt.Errorf("add holder %s: %w", h.id, domain.ErrAlreadyMember)
	}
	var errs []error
	if old := *field; old != nil {
		errs = append(errs, f.Remove(old))
	}
	if h != nil {
		*field = h
		if err := f.Add(h); err != nil {
			// Data errors keep h as a member; only a rejected add clears it.
			if h.fit != f {
				*field = nil
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetSource switches the data source. Every holder is removed under the old
// source and added back under the new one within a single dispatch.
// Sources of non-comparable types are always treated as a change.
func (f *Fit) SetSource(src domain.Source) error {
	if sameSource(src, f.source) {
		return nil
	}
	newTypes := make(map[*Holder]*domain.ItemType, len(f.holders))
	for _, h := range f.holders {
		newTypes[h] = f.loadType(src, h.typeID)
	}
	return f.dispatch(sourceChangedInstructions(f.Holders(), src, newTypes))
}

func sameSource(a, b domain.Source) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	return ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}

// Subscribe registers an external listener. Listeners run after the
// internal calculator, in subscription order.
func (f *Fit) Subscribe(s Subscriber) {
	if s == nil || slices.Contains(f.subs, s) {
		return
	}
	f.subs = append(f.subs, s)
}

// Unsubscribe removes a listener registered with Subscribe.
func (f *Fit) Unsubscribe(s Subscriber) {
	f.subs = slices.DeleteFunc(f.subs, func(o Subscriber) bool { return o == s })
}

// dispatch applies each instruction to the fit and delivers it to every
// subscriber before moving to the next one. Subscriber errors do not stop
// delivery.
func (f *Fit) dispatch(instrs []Instruction) error {
	var errs []error
	for _, in := range instrs {
		f.apply(in)
		f.metrics.Instruction(in.Kind)
		if err := f.calc.Notify(in); err != nil {
			errs = append(errs, err)
		}
		for _, s := range slices.Clone(f.subs) {
			if err := s.Notify(in); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *Fit) apply(in Instruction) {
	if in.Kind != InstrRefreshSource {
		return
	}
	f.source = in.Source
	for _, h := range f.holders {
		h.itemType = f.loadType(in.Source, h.typeID)
	}
}

func (f *Fit) loadType(src domain.Source, id domain.TypeID) *domain.ItemType {
	if src == nil {
		return nil
	}
	t, err := src.Type(id)
	if err != nil {
		f.logger.Debug("type not loaded", "type", id, "source", src.Name(), "err", err)
		return nil
	}
	return t
}

func (f *Fit) attributeDef(attr domain.AttrID) (*domain.AttributeDef, error) {
	if f.source == nil {
		return nil, fmt.Errorf("attribute %d: %w", attr, domain.ErrNotLoaded)
	}
	def, err := f.source.Attribute(attr)
	if err != nil {
		return nil, fmt.Errorf("attribute %d: %w", attr, err)
	}
	return def, nil
}

// contribution evaluates the operator and value an entry contributes.
func (f *Fit) contribution(a *Affector) (domain.Operator, float64, error) {
	mod := a.Modifier
	if mod.Dynamic != nil {
		var ship domain.AttributeReader
		if f.ship != nil {
			ship = f.ship.attrs
		}
		op, v, err := mod.Dynamic.Modify(a.Holder.attrs, ship)
		if err == nil && !op.Valid() {
			err = fmt.Errorf("scripted modifier returned unknown operator %d", op)
		}
		return op, v, err
	}
	v, err := a.Holder.attrs.Get(mod.SourceAttr)
	return mod.Operator, v, err
}

func (f *Fit) penaltyImmune(cat domain.CategoryID) bool {
	_, ok := f.immune[cat]
	return ok
}

func (f *Fit) nextSeq() uint64 {
	f.seq++
	return f.seq
}

// Stats summarises registry and cache occupancy.
type Stats struct {
	Holders          int
	Affectees        int
	Affectors        int
	Entries          int
	CachedValues     int
	ContributorLinks int
}

// Stats reports the current registry and cache occupancy.
func (f *Fit) Stats() Stats {
	st := Stats{Holders: len(f.holders), Entries: f.calc.affectorCount()}
	st.Affectees, st.Affectors = f.reg.counts()
	for _, h := range f.holders {
		values, links := h.attrs.cacheSize()
		st.CachedValues += values
		st.ContributorLinks += links
	}
	return st
}
