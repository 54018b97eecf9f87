package core

import (
	"errors"
	"testing"

	"fitcore/pkg/domain"
)

func TestRegistryUnregisterIsSafe(t *testing.T) {
	src := fitSource()
	bonusModule(src, 10, domain.OpPostMul, 1.5, attrTarget)
	fit, _ := newShipFit(t, src)
	module := addModule(t, fit, 10)

	reg := fit.reg
	stray := &Affector{Holder: module, Modifier: shipMod(domain.OpModAdd, attrBonus, attrTarget)}
	reg.unregisterAffector(stray)
	reg.unregisterAffectee(NewModule(10))

	reg.unregisterAffectee(module)
	reg.unregisterAffectee(module)
	if affectees, _ := reg.counts(); affectees != 0 {
		t.Fatalf("expected no affectees, got %d", affectees)
	}
}

func TestRegistrySelfResolvesToShip(t *testing.T) {
	src := fitSource()
	src.types[typeShip].Effects = []*domain.Effect{passive(1, &domain.Modifier{
		Filter: domain.FilterAll, Location: domain.LocationSelf, Operator: domain.OpModAdd, SourceAttr: attrBase, TargetAttr: attrStacked,
	})}
	src.defineType(&domain.ItemType{ID: 20, CategoryID: domain.CategoryIDModule, Attributes: map[domain.AttrID]float64{attrStacked: 1}})
	fit, _ := newShipFit(t, src)
	module := addModule(t, fit, 20)
	if v := mustGet(t, module, attrStacked); v != 11 {
		t.Fatalf("expected ship bonus on module, got %v", v)
	}
	entries := fit.reg.affectors(module)
	if len(entries) != 1 || entries[0].Holder != fit.Ship() {
		t.Fatalf("unexpected affectors %v", entries)
	}
}

func TestRegistryAffecteesUnsupportedLocation(t *testing.T) {
	fit := NewFit(fitSource())
	h := NewModule(10)
	a := &Affector{Holder: h, Modifier: &domain.Modifier{Filter: domain.FilterNone, Location: domain.LocationOther, TargetAttr: attrTarget, SourceAttr: attrBonus}}
	_, err := fit.reg.affectees(a)
	var dataErr *domain.DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected data error, got %v", err)
	}
	a.Modifier = &domain.Modifier{Filter: domain.FilterOwnerSkill, Location: domain.LocationShip, FilterValue: 1, TargetAttr: attrTarget, SourceAttr: attrBonus}
	if err := fit.reg.registerAffector(a); !errors.As(err, &dataErr) {
		t.Fatalf("expected owner skill data error, got %v", err)
	}
}

func TestRegistryIgnoresUntrackedModifiers(t *testing.T) {
	src := fitSource()
	src.defineType(&domain.ItemType{ID: 20, CategoryID: domain.CategoryIDModule,
		Attributes: map[domain.AttrID]float64{attrBonus: 5},
		Effects: []*domain.Effect{passive(20,
			&domain.Modifier{Location: domain.LocationShip, Operator: domain.OpModAdd, SourceAttr: attrBonus, TargetAttr: attrBase, Scope: domain.ScopeGang},
			&domain.Modifier{Location: domain.LocationShip, Operator: domain.OpModAdd, SourceAttr: attrBonus, TargetAttr: attrBase, Instant: true},
		)},
	})
	fit, ship := newShipFit(t, src)
	addModule(t, fit, 20)
	if st := fit.Stats(); st.Affectors != 0 {
		t.Fatalf("untracked modifiers registered: %+v", st)
	}
	if v := mustGet(t, ship, attrBase); v != 10 {
		t.Fatalf("expected untouched base, got %v", v)
	}
}
