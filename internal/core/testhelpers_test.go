package core

import (
	"math"
	"testing"
	"time"

	"fitcore/pkg/domain"
)

const (
	attrBase    domain.AttrID = 100
	attrTarget  domain.AttrID = 101
	attrBonus   domain.AttrID = 102
	attrBonus2  domain.AttrID = 103
	attrStacked domain.AttrID = 104
	attrCap     domain.AttrID = 105
	attrCapped  domain.AttrID = 106
	attrNoBase  domain.AttrID = 107
	attrDefault domain.AttrID = 108
	attrAssign  domain.AttrID = 109
)

const (
	groupGun   domain.GroupID = 55
	groupOther domain.GroupID = 56
	skillGun   domain.TypeID  = 3300
)

type testSource struct {
	name  string
	types map[domain.TypeID]*domain.ItemType
	attrs map[domain.AttrID]*domain.AttributeDef
}

func newTestSource(name string) *testSource {
	src := &testSource{
		name:  name,
		types: make(map[domain.TypeID]*domain.ItemType),
		attrs: make(map[domain.AttrID]*domain.AttributeDef),
	}
	def := 7.0
	capAttr := attrCap
	src.defineAttr(&domain.AttributeDef{ID: attrBase, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrTarget, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrBonus, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrBonus2, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrStacked, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrCap, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: attrCapped, Stackable: true, HighIsGood: true, MaxAttribute: &capAttr})
	src.defineAttr(&domain.AttributeDef{ID: attrNoBase, Stackable: true})
	src.defineAttr(&domain.AttributeDef{ID: attrDefault, Stackable: true, DefaultValue: &def})
	src.defineAttr(&domain.AttributeDef{ID: attrAssign, Stackable: true, HighIsGood: true})
	src.defineAttr(&domain.AttributeDef{ID: domain.AttrSkillLevel, Stackable: true, HighIsGood: true})
	return src
}

func (s *testSource) Name() string { return s.name }

func (s *testSource) Type(id domain.TypeID) (*domain.ItemType, error) {
	t, ok := s.types[id]
	if !ok {
		return nil, domain.ErrNotFound{Kind: "type", ID: int64(id)}
	}
	return t, nil
}

func (s *testSource) Attribute(id domain.AttrID) (*domain.AttributeDef, error) {
	def, ok := s.attrs[id]
	if !ok {
		return nil, domain.ErrNotFound{Kind: "attribute", ID: int64(id)}
	}
	return def, nil
}

func (s *testSource) defineAttr(def *domain.AttributeDef) {
	s.attrs[def.ID] = def
}

func (s *testSource) defineType(t *domain.ItemType) *domain.ItemType {
	if t.Attributes == nil {
		t.Attributes = make(map[domain.AttrID]float64)
	}
	s.types[t.ID] = t
	return t
}

// passive wraps modifiers into an always-running effect.
func passive(id domain.EffectID, mods ...*domain.Modifier) *domain.Effect {
	return &domain.Effect{ID: id, Category: domain.CategoryPassive, Modifiers: mods}
}

func effectOf(id domain.EffectID, cat domain.EffectCategory, mods ...*domain.Modifier) *domain.Effect {
	return &domain.Effect{ID: id, Category: cat, Modifiers: mods}
}

func shipMod(op domain.Operator, source, target domain.AttrID) *domain.Modifier {
	return &domain.Modifier{Filter: domain.FilterNone, Location: domain.LocationShip, Operator: op, SourceAttr: source, TargetAttr: target}
}

// countingMetrics records calls for assertions.
type countingMetrics struct {
	hits, misses, calculations, skipped int
	instructions                        map[InstructionKind]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{instructions: make(map[InstructionKind]int)}
}

func (m *countingMetrics) CacheLookup(hit bool) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func (m *countingMetrics) Calculated(time.Duration, error) { m.calculations++ }

func (m *countingMetrics) Instruction(kind InstructionKind) { m.instructions[kind]++ }

func (m *countingMetrics) ContributorSkipped() { m.skipped++ }

// recorder is an external subscriber capturing instruction kinds.
type recorder struct {
	kinds []InstructionKind
	fail  error
}

func (r *recorder) Notify(in Instruction) error {
	r.kinds = append(r.kinds, in.Kind)
	return r.fail
}

func mustGet(t *testing.T, h *Holder, attr domain.AttrID) float64 {
	t.Helper()
	v, err := h.Attributes().Get(attr)
	if err != nil {
		t.Fatalf("get attr %d on %s: %v", attr, h.ID(), err)
	}
	return v
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertEmpty(t *testing.T, fit *Fit) {
	t.Helper()
	st := fit.Stats()
	if st != (Stats{}) {
		t.Fatalf("expected empty fit, got %+v", st)
	}
}

const (
	typeShip  domain.TypeID = 1
	typeShip2 domain.TypeID = 2
	typeChar  domain.TypeID = 3
)

// fitSource returns a source with two ships and a character defined.
func fitSource() *testSource {
	src := newTestSource("test")
	src.defineType(&domain.ItemType{ID: typeShip, CategoryID: domain.CategoryIDShip, Attributes: map[domain.AttrID]float64{
		attrTarget: 100, attrBase: 10, attrStacked: 100, attrCap: 50, attrCapped: 40, attrAssign: 1,
	}})
	src.defineType(&domain.ItemType{ID: typeShip2, CategoryID: domain.CategoryIDShip, Attributes: map[domain.AttrID]float64{
		attrTarget: 200, attrBase: 20,
	}})
	src.defineType(&domain.ItemType{ID: typeChar, CategoryID: 1})
	return src
}

// bonusModule defines a module type whose passive effect applies its
// attrBonus to the ship's target attribute.
func bonusModule(src *testSource, id domain.TypeID, op domain.Operator, value float64, target domain.AttrID) *domain.ItemType {
	return src.defineType(&domain.ItemType{
		ID:             id,
		GroupID:        groupGun,
		CategoryID:     domain.CategoryIDModule,
		Attributes:     map[domain.AttrID]float64{attrBonus: value},
		Effects:        []*domain.Effect{passive(domain.EffectID(id), shipMod(op, attrBonus, target))},
		RequiredSkills: []domain.TypeID{skillGun},
	})
}

// newShipFit builds a fit with a ship of typeShip.
func newShipFit(t *testing.T, src *testSource, opts ...Option) (*Fit, *Holder) {
	t.Helper()
	fit := NewFit(src, opts...)
	ship := NewShip(typeShip)
	if err := fit.SetShip(ship); err != nil {
		t.Fatalf("set ship: %v", err)
	}
	return fit, ship
}

func addModule(t *testing.T, fit *Fit, typeID domain.TypeID, opts ...HolderOption) *Holder {
	t.Helper()
	h := NewModule(typeID, opts...)
	if err := fit.Add(h); err != nil {
		t.Fatalf("add module %d: %v", typeID, err)
	}
	return h
}
