package core

import (
	"errors"

	"fitcore/pkg/domain"
)

type affectorKey struct {
	holder   *Holder
	effect   domain.EffectID
	modifier *domain.Modifier
}

// calculator is the first subscriber of every fit. It keeps the registry and
// the value stores in step with the instruction stream.
type calculator struct {
	fit     *Fit
	reg     *registry
	entries map[affectorKey]*Affector
	dynamic affectorSet
}

func newCalculator(fit *Fit, reg *registry) *calculator {
	return &calculator{
		fit:     fit,
		reg:     reg,
		entries: make(map[affectorKey]*Affector),
		dynamic: make(affectorSet),
	}
}

func (c *calculator) Notify(in Instruction) error {
	switch in.Kind {
	case InstrHolderAdd:
		c.reg.registerAffectee(in.Holder)
		c.reviseDynamic(in.Holder)
	case InstrHolderRemove:
		c.reg.unregisterAffectee(in.Holder)
		c.clearHolder(in.Holder)
		c.reviseDynamic(in.Holder)
	case InstrEffectsActivate:
		return c.activate(in.Holder, in.Effects)
	case InstrEffectsDeactivate:
		return c.deactivate(in.Holder, in.Effects)
	case InstrRefreshSource:
		for _, h := range c.fit.holders {
			h.attrs.clear()
		}
	case InstrAttrValueChanged:
		in.Holder.attrs.invalidate(in.Attr)
		c.cascade(in.Holder, in.Attr)
	case InstrStatesActivate, InstrStatesDeactivate:
	}
	return nil
}

func (c *calculator) modifiers(h *Holder, effects []domain.EffectID, visit func(domain.EffectID, *domain.Modifier)) {
	if h.itemType == nil {
		return
	}
	for _, id := range effects {
		eff, ok := h.itemType.Effect(id)
		if !ok {
			continue
		}
		for _, mod := range eff.Modifiers {
			if mod.Tracked() {
				visit(id, mod)
			}
		}
	}
}

func (c *calculator) activate(h *Holder, effects []domain.EffectID) error {
	var errs []error
	c.modifiers(h, effects, func(id domain.EffectID, mod *domain.Modifier) {
		key := affectorKey{holder: h, effect: id, modifier: mod}
		if _, ok := c.entries[key]; ok {
			return
		}
		a := &Affector{Holder: h, Modifier: mod, Effect: id, seq: c.fit.nextSeq()}
		if err := c.reg.registerAffector(a); err != nil {
			c.fit.logger.Error("modifier not registered", "holder", h.id, "effect", id, "err", err)
			errs = append(errs, err)
			return
		}
		c.entries[key] = a
		if mod.Dynamic != nil {
			c.dynamic[a] = struct{}{}
		}
		c.dropAffectees(a)
	})
	return errors.Join(errs...)
}

func (c *calculator) deactivate(h *Holder, effects []domain.EffectID) error {
	c.modifiers(h, effects, func(id domain.EffectID, mod *domain.Modifier) {
		key := affectorKey{holder: h, effect: id, modifier: mod}
		a, ok := c.entries[key]
		if !ok {
			return
		}
		targets, _ := c.reg.affectees(a)
		c.reg.unregisterAffector(a)
		delete(c.entries, key)
		delete(c.dynamic, a)
		for _, t := range targets {
			c.drop(t, mod.TargetAttr)
		}
	})
	return nil
}

func (c *calculator) dropAffectees(a *Affector) {
	targets, err := c.reg.affectees(a)
	if err != nil {
		return
	}
	for _, t := range targets {
		c.drop(t, a.Modifier.TargetAttr)
	}
}

// drop invalidates a cached slot and everything computed from it. Slots that
// are not cached have no dependents.
func (c *calculator) drop(h *Holder, attr domain.AttrID) {
	if !h.attrs.invalidate(attr) {
		return
	}
	c.cascade(h, attr)
}

// cascade invalidates the slots that read (h, attr) through a modifier.
func (c *calculator) cascade(h *Holder, attr domain.AttrID) {
	for _, a := range c.reg.sourcedBy(h) {
		if a.Modifier.Dynamic == nil && a.Modifier.SourceAttr == attr {
			c.dropAffectees(a)
		}
	}
	for a := range c.dynamic {
		if c.dependsOn(a, h, attr) {
			c.dropAffectees(a)
		}
	}
}

func (c *calculator) dependsOn(a *Affector, h *Holder, attr domain.AttrID) bool {
	for _, ref := range a.Modifier.Dynamic.DependsOn() {
		if ref.Attr != attr {
			continue
		}
		switch ref.Location {
		case domain.LocationSelf:
			if a.Holder == h {
				return true
			}
		case domain.LocationShip:
			if h == c.fit.ship {
				return true
			}
		case domain.LocationCharacter:
			if h == c.fit.character {
				return true
			}
		}
	}
	return false
}

// reviseDynamic drops values of scripted modifiers reading the ship or the
// character when either one joins or leaves.
func (c *calculator) reviseDynamic(h *Holder) {
	var loc domain.Location
	switch h {
	case c.fit.ship:
		loc = domain.LocationShip
	case c.fit.character:
		loc = domain.LocationCharacter
	default:
		return
	}
	for a := range c.dynamic {
		for _, ref := range a.Modifier.Dynamic.DependsOn() {
			if ref.Location == loc {
				c.dropAffectees(a)
				break
			}
		}
	}
}

// clearHolder drops every cached value of a leaving holder along with its
// dependents.
func (c *calculator) clearHolder(h *Holder) {
	for _, attr := range h.attrs.cachedKeys() {
		c.drop(h, attr)
	}
	h.attrs.clear()
}

func (c *calculator) affectorCount() int {
	return len(c.entries)
}
