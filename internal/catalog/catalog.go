// Package catalog provides the item and attribute data fits are calculated
// from. A Catalog is immutable once built and may be shared by fits running on
// different goroutines.
package catalog

import (
	"fmt"
	"sort"

	"fitcore/internal/script"
	"fitcore/pkg/domain"
)

// Catalog implements domain.Source over a built Document.
type Catalog struct {
	name    string
	attrs   map[domain.AttrID]*domain.AttributeDef
	effects map[domain.EffectID]*domain.Effect
	types   map[domain.TypeID]*domain.ItemType
}

var _ domain.Source = (*Catalog)(nil)

// Build validates doc and resolves effect references and scripts.
func Build(doc *Document) (*Catalog, error) {
	c := &Catalog{
		name:    doc.Name,
		attrs:   make(map[domain.AttrID]*domain.AttributeDef, len(doc.Attributes)),
		effects: make(map[domain.EffectID]*domain.Effect, len(doc.Effects)),
		types:   make(map[domain.TypeID]*domain.ItemType, len(doc.Types)),
	}
	for _, a := range doc.Attributes {
		id := domain.AttrID(a.ID)
		if _, dup := c.attrs[id]; dup {
			return nil, fmt.Errorf("duplicate attribute %d", a.ID)
		}
		def := &domain.AttributeDef{ID: id, Name: a.Name, DefaultValue: a.Default, HighIsGood: a.HighIsGood, Stackable: a.Stackable}
		if a.MaxAttribute != nil {
			maxAttr := domain.AttrID(*a.MaxAttribute)
			def.MaxAttribute = &maxAttr
		}
		c.attrs[id] = def
	}
	for _, e := range doc.Effects {
		effect, err := buildEffect(e)
		if err != nil {
			return nil, err
		}
		if _, dup := c.effects[effect.ID]; dup {
			return nil, fmt.Errorf("duplicate effect %d", e.ID)
		}
		c.effects[effect.ID] = effect
	}
	for _, t := range doc.Types {
		itemType, err := c.buildType(t)
		if err != nil {
			return nil, err
		}
		if _, dup := c.types[itemType.ID]; dup {
			return nil, fmt.Errorf("duplicate type %d", t.ID)
		}
		c.types[itemType.ID] = itemType
	}
	return c, nil
}

func buildEffect(doc EffectDoc) (*domain.Effect, error) {
	category, err := domain.ParseEffectCategory(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("effect %d: %w", doc.ID, err)
	}
	effect := &domain.Effect{ID: domain.EffectID(doc.ID), Name: doc.Name, Category: category}
	for i, md := range doc.Modifiers {
		mod, err := buildModifier(md, fmt.Sprintf("effect %d modifier %d", doc.ID, i))
		if err != nil {
			return nil, fmt.Errorf("effect %d modifier %d: %w", doc.ID, i, err)
		}
		effect.Modifiers = append(effect.Modifiers, mod)
	}
	return effect, nil
}

func buildModifier(doc ModifierDoc, name string) (*domain.Modifier, error) {
	filter, err := domain.ParseFilterKind(doc.Filter)
	if err != nil {
		return nil, err
	}
	location, err := domain.ParseLocation(doc.Location)
	if err != nil {
		return nil, err
	}
	scope, err := domain.ParseScope(doc.Scope)
	if err != nil {
		return nil, err
	}
	mod := &domain.Modifier{
		Filter:      filter,
		Location:    location,
		FilterValue: doc.FilterValue,
		TargetAttr:  domain.AttrID(doc.Target),
		SourceAttr:  domain.AttrID(doc.Source),
		Scope:       scope,
		Instant:     doc.Instant,
	}
	if doc.Operator != "" {
		if mod.Operator, err = domain.ParseOperator(doc.Operator); err != nil {
			return nil, err
		}
	}
	if doc.Script != "" {
		deps := make([]domain.SourceRef, 0, len(doc.Depends))
		for _, d := range doc.Depends {
			loc, err := domain.ParseLocation(d.Location)
			if err != nil {
				return nil, err
			}
			deps = append(deps, domain.SourceRef{Location: loc, Attr: domain.AttrID(d.Attr)})
		}
		dynamic, err := script.Compile(name, doc.Script, deps)
		if err != nil {
			return nil, err
		}
		mod.Dynamic = dynamic
	} else if doc.Operator == "" {
		return nil, &domain.DataError{Reason: "modifier has no operator", Modifier: mod}
	}
	if err := mod.Validate(); err != nil {
		return nil, err
	}
	return mod, nil
}

func (c *Catalog) buildType(doc TypeDoc) (*domain.ItemType, error) {
	t := &domain.ItemType{
		ID:         domain.TypeID(doc.ID),
		Name:       doc.Name,
		GroupID:    domain.GroupID(doc.Group),
		CategoryID: domain.CategoryID(doc.Category),
		Attributes: make(map[domain.AttrID]float64, len(doc.Attributes)),
	}
	for id, v := range doc.Attributes {
		t.Attributes[domain.AttrID(id)] = v
	}
	for _, id := range doc.Effects {
		effect, ok := c.effects[domain.EffectID(id)]
		if !ok {
			return nil, fmt.Errorf("type %d: %w", doc.ID, domain.ErrNotFound{Kind: "effect", ID: int64(id)})
		}
		t.Effects = append(t.Effects, effect)
	}
	if len(doc.RequiredSkills) > 0 {
		for _, id := range doc.RequiredSkills {
			t.RequiredSkills = append(t.RequiredSkills, domain.TypeID(id))
		}
		return t, nil
	}
	for _, attr := range domain.RequiredSkillAttrs {
		if v, ok := t.Attributes[attr]; ok && v > 0 {
			t.RequiredSkills = append(t.RequiredSkills, domain.TypeID(v))
		}
	}
	return t, nil
}

// Name implements domain.Source.
func (c *Catalog) Name() string { return c.name }

// Type implements domain.Source.
func (c *Catalog) Type(id domain.TypeID) (*domain.ItemType, error) {
	t, ok := c.types[id]
	if !ok {
		return nil, domain.ErrNotFound{Kind: "type", ID: int64(id)}
	}
	return t, nil
}

// Attribute implements domain.Source.
func (c *Catalog) Attribute(id domain.AttrID) (*domain.AttributeDef, error) {
	def, ok := c.attrs[id]
	if !ok {
		return nil, domain.ErrNotFound{Kind: "attribute", ID: int64(id)}
	}
	return def, nil
}

// Effect returns an effect by id.
func (c *Catalog) Effect(id domain.EffectID) (*domain.Effect, bool) {
	e, ok := c.effects[id]
	return e, ok
}

// Types lists every type id in ascending order.
func (c *Catalog) Types() []domain.TypeID {
	ids := make([]domain.TypeID, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AttributeByName resolves an attribute by its name.
func (c *Catalog) AttributeByName(name string) (*domain.AttributeDef, bool) {
	for _, def := range c.attrs {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}
