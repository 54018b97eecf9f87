package domain

import (
	"errors"
	"testing"
)

func TestStatesAreCumulative(t *testing.T) {
	got := States(StateActive)
	want := []State{StateOffline, StateOnline, StateActive}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestOperatorOrderAndParse(t *testing.T) {
	ops := Operators()
	for i := 1; i < len(ops); i++ {
		if ops[i-1] >= ops[i] {
			t.Fatalf("operators out of order: %v", ops)
		}
	}
	for _, op := range ops {
		parsed, err := ParseOperator(op.String())
		if err != nil || parsed != op {
			t.Fatalf("round trip %s: got %s, %v", op, parsed, err)
		}
	}
	if _, err := ParseOperator("bogus"); err == nil {
		t.Fatalf("expected error for unknown operator")
	}
	if !OpPostDiv.Multiplicative() || OpModAdd.Multiplicative() {
		t.Fatalf("unexpected multiplicative classification")
	}
}

func TestEffectCategoryState(t *testing.T) {
	cases := map[EffectCategory]State{
		CategoryPassive:  StateOffline,
		CategorySystem:   StateOffline,
		CategoryOnline:   StateOnline,
		CategoryActive:   StateActive,
		CategoryTarget:   StateActive,
		CategoryArea:     StateActive,
		CategoryOverload: StateOverload,
	}
	for cat, want := range cases {
		if got := cat.State(); got != want {
			t.Fatalf("%s: expected %s, got %s", cat, want, got)
		}
	}
}

func TestModifierValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  Modifier
		ok   bool
	}{
		{"direct ship", Modifier{Filter: FilterNone, Location: LocationShip, TargetAttr: 1, SourceAttr: 2}, true},
		{"direct space", Modifier{Filter: FilterNone, Location: LocationSpace, TargetAttr: 1, SourceAttr: 2}, false},
		{"direct with value", Modifier{Filter: FilterNone, Location: LocationSelf, FilterValue: 3, TargetAttr: 1, SourceAttr: 2}, false},
		{"all ship", Modifier{Filter: FilterAll, Location: LocationShip, TargetAttr: 1, SourceAttr: 2}, true},
		{"all target", Modifier{Filter: FilterAll, Location: LocationTarget, TargetAttr: 1, SourceAttr: 2}, false},
		{"group missing id", Modifier{Filter: FilterGroup, Location: LocationShip, TargetAttr: 1, SourceAttr: 2}, false},
		{"skill self", Modifier{Filter: FilterSkill, Location: LocationShip, FilterValue: FilterValueSelf, TargetAttr: 1, SourceAttr: 2}, true},
		{"owner skill ship", Modifier{Filter: FilterOwnerSkill, Location: LocationShip, FilterValue: 5, TargetAttr: 1, SourceAttr: 2}, false},
		{"owner skill char", Modifier{Filter: FilterOwnerSkill, Location: LocationCharacter, FilterValue: 5, TargetAttr: 1, SourceAttr: 2}, true},
		{"no target", Modifier{Filter: FilterAll, Location: LocationShip, SourceAttr: 2}, false},
		{"no source", Modifier{Filter: FilterAll, Location: LocationShip, TargetAttr: 1}, false},
	}
	for _, tc := range cases {
		err := tc.mod.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			var dataErr *DataError
			if !errors.As(err, &dataErr) {
				t.Fatalf("%s: expected data error, got %v", tc.name, err)
			}
		}
	}
}

func TestModifierTracked(t *testing.T) {
	if !(&Modifier{}).Tracked() {
		t.Fatalf("local duration modifier should be tracked")
	}
	if (&Modifier{Scope: ScopeGang}).Tracked() || (&Modifier{Instant: true}).Tracked() {
		t.Fatalf("gang and instant modifiers must not be tracked")
	}
	if !(&Modifier{Scope: ScopeProjected}).Projected() {
		t.Fatalf("expected projected flag")
	}
}
