package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"fitcore/pkg/domain"
)

var errDivisionByZero = errors.New("division by zero")

// AttributeMap is the lazy value store of one holder. Values are computed on
// first read and cached until an instruction invalidates them.
type AttributeMap struct {
	holder       *Holder
	values       map[domain.AttrID]float64
	contributors map[domain.AttrID][]*Affector
	diagnostics  map[domain.AttrID][]error
	overrides    map[domain.AttrID]float64
}

func newAttributeMap(h *Holder) *AttributeMap {
	return &AttributeMap{
		holder:       h,
		values:       make(map[domain.AttrID]float64),
		contributors: make(map[domain.AttrID][]*Affector),
		diagnostics:  make(map[domain.AttrID][]error),
		overrides:    make(map[domain.AttrID]float64),
	}
}

type slot struct {
	holder *Holder
	attr   domain.AttrID
}

// Get returns the final value of attr. A contributor that would read a slot
// already being computed is skipped with domain.ErrCycle and the inner slot
// is cached without it, so values along a cycle depend on which slot was
// read first.
func (m *AttributeMap) Get(attr domain.AttrID) (float64, error) {
	if v, ok := m.overrides[attr]; ok {
		return v, nil
	}
	h := m.holder
	fit := h.fit
	if fit == nil {
		return 0, fmt.Errorf("attribute %d on holder %s: %w", attr, h.id, domain.ErrNotMember)
	}
	if v, ok := m.values[attr]; ok {
		fit.metrics.CacheLookup(true)
		return v, nil
	}
	fit.metrics.CacheLookup(false)
	if h.itemType == nil {
		return 0, fmt.Errorf("attribute %d on holder %s: %w", attr, h.id, domain.ErrNotLoaded)
	}

	key := slot{holder: h, attr: attr}
	if _, busy := fit.inProgress[key]; busy {
		return 0, fmt.Errorf("attribute %d on holder %s: %w", attr, h.id, domain.ErrCycle)
	}
	if fit.depth >= fit.maxDepth {
		return 0, fmt.Errorf("attribute %d on holder %s: %w", attr, h.id, domain.ErrDepthExceeded)
	}
	fit.inProgress[key] = struct{}{}
	fit.depth++
	defer func() {
		delete(fit.inProgress, key)
		fit.depth--
	}()

	start := time.Now()
	v, err := m.compute(attr)
	fit.metrics.Calculated(time.Since(start), err)
	return v, err
}

type contribution struct {
	entry    *Affector
	op       domain.Operator
	value    float64
	penalize bool
}

func (m *AttributeMap) compute(attr domain.AttrID) (float64, error) {
	h := m.holder
	fit := h.fit
	def, err := fit.attributeDef(attr)
	if err != nil {
		return 0, err
	}
	base, err := m.base(def)
	if err != nil {
		return 0, err
	}

	var (
		contribs []contribution
		used     []*Affector
		diags    []error
	)
	for _, a := range fit.reg.affectors(h) {
		if a.Modifier.TargetAttr != attr {
			continue
		}
		op, v, err := fit.contribution(a)
		if err == nil && (op == domain.OpPreDiv || op == domain.OpPostDiv) && v == 0 {
			err = errDivisionByZero
		}
		if err != nil {
			cerr := &domain.ContributorError{HolderID: h.id, Attr: attr, SourceID: a.Holder.id, Modifier: a.Modifier, Err: err}
			fit.logger.Warn("skipping attribute contributor",
				"holder", h.id, "attr", attr, "source", a.Holder.id, "err", err)
			fit.metrics.ContributorSkipped()
			diags = append(diags, cerr)
			continue
		}
		contribs = append(contribs, contribution{
			entry:    a,
			op:       op,
			value:    v,
			penalize: !def.Stackable && op.Multiplicative() && !fit.penaltyImmune(a.Holder.CategoryID()),
		})
		used = append(used, a)
	}

	result := fold(base, contribs, def.HighIsGood)
	if def.MaxAttribute != nil {
		if limit, err := m.baseOf(*def.MaxAttribute); err == nil && result > limit {
			result = limit
		}
	}

	m.values[attr] = result
	if len(used) > 0 {
		m.contributors[attr] = used
	}
	if len(diags) > 0 {
		m.diagnostics[attr] = diags
	}
	return result, nil
}

// base returns the unmodified value declared by the holder's type, falling
// back to the attribute default.
func (m *AttributeMap) base(def *domain.AttributeDef) (float64, error) {
	if v, ok := m.holder.itemType.Attribute(def.ID); ok {
		return v, nil
	}
	if def.DefaultValue != nil {
		return *def.DefaultValue, nil
	}
	return 0, &domain.NoValueError{HolderID: m.holder.id, Attr: def.ID}
}

func (m *AttributeMap) baseOf(attr domain.AttrID) (float64, error) {
	def, err := m.holder.fit.attributeDef(attr)
	if err != nil {
		return 0, err
	}
	return m.base(def)
}

// fold applies contributions to base in operator order.
func fold(base float64, contribs []contribution, highIsGood bool) float64 {
	byOp := make(map[domain.Operator][]contribution)
	for _, c := range contribs {
		byOp[c.op] = append(byOp[c.op], c)
	}
	result := base
	for _, op := range domain.Operators() {
		cs := byOp[op]
		if len(cs) == 0 {
			continue
		}
		switch op {
		case domain.OpPreAssign, domain.OpPostAssign:
			pick := cs[0].value
			for _, c := range cs[1:] {
				if highIsGood {
					pick = max(pick, c.value)
				} else {
					pick = min(pick, c.value)
				}
			}
			result = pick
		case domain.OpPreMul, domain.OpPostMul, domain.OpPreDiv, domain.OpPostDiv:
			var pen []penalized
			for _, c := range cs {
				mult := c.value
				if op == domain.OpPreDiv || op == domain.OpPostDiv {
					mult = 1 / mult
				}
				if c.penalize {
					pen = append(pen, penalized{multiplier: mult, seq: c.entry.seq})
					continue
				}
				result *= mult
			}
			result *= stackingMultiplier(pen)
		case domain.OpModAdd:
			for _, c := range cs {
				result += c.value
			}
		case domain.OpModSub:
			for _, c := range cs {
				result -= c.value
			}
		case domain.OpPostPercent:
			for _, c := range cs {
				result *= 1 + c.value/100
			}
		}
	}
	return result
}

// Set overrides the computed value of attr and invalidates everything
// derived from it.
func (m *AttributeMap) Set(attr domain.AttrID, value float64) error {
	m.overrides[attr] = value
	if m.holder.fit == nil {
		return nil
	}
	return m.holder.fit.dispatch(attrChangedInstructions(m.holder, attr))
}

// Reset removes an override set with Set.
func (m *AttributeMap) Reset(attr domain.AttrID) error {
	if _, ok := m.overrides[attr]; !ok {
		return nil
	}
	delete(m.overrides, attr)
	if m.holder.fit == nil {
		return nil
	}
	return m.holder.fit.dispatch(attrChangedInstructions(m.holder, attr))
}

// Has reports whether attr currently holds a cached or overridden value.
func (m *AttributeMap) Has(attr domain.AttrID) bool {
	if _, ok := m.overrides[attr]; ok {
		return true
	}
	_, ok := m.values[attr]
	return ok
}

// Keys lists the attributes with a cached or overridden value, sorted.
func (m *AttributeMap) Keys() []domain.AttrID {
	keys := slices.Collect(maps.Keys(m.values))
	for attr := range m.overrides {
		if _, ok := m.values[attr]; !ok {
			keys = append(keys, attr)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of attributes reported by Keys.
func (m *AttributeMap) Len() int {
	return len(m.Keys())
}

// Items returns a copy of every cached or overridden value.
func (m *AttributeMap) Items() map[domain.AttrID]float64 {
	out := maps.Clone(m.values)
	maps.Copy(out, m.overrides)
	return out
}

// Diagnostics returns the contributor errors recorded when attr was last
// computed.
func (m *AttributeMap) Diagnostics(attr domain.AttrID) []error {
	return slices.Clone(m.diagnostics[attr])
}

// Contributors returns the entries folded into the cached value of attr.
func (m *AttributeMap) Contributors(attr domain.AttrID) []*Affector {
	return slices.Clone(m.contributors[attr])
}

// invalidate drops one cached slot and reports whether it existed.
func (m *AttributeMap) invalidate(attr domain.AttrID) bool {
	_, ok := m.values[attr]
	delete(m.values, attr)
	delete(m.contributors, attr)
	delete(m.diagnostics, attr)
	return ok
}

// clear drops every cached slot and dependency record.
func (m *AttributeMap) clear() {
	clear(m.values)
	clear(m.contributors)
	clear(m.diagnostics)
}

func (m *AttributeMap) cachedKeys() []domain.AttrID {
	return slices.Collect(maps.Keys(m.values))
}

func (m *AttributeMap) cacheSize() (values, contributors int) {
	for _, cs := range m.contributors {
		contributors += len(cs)
	}
	return len(m.values), contributors
}
