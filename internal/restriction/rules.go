package restriction

import (
	"context"
	"errors"
	"fmt"

	"fitcore/internal/core"
	"fitcore/pkg/domain"
)

// Rule is one restriction evaluated against a fit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view View) (domain.Result, error)
}

// Engine runs registered rules and aggregates their violations.
type Engine struct {
	rules []Rule
}

// NewEngine constructs an empty engine.
func NewEngine() *Engine {
	return &Engine{}
}

// NewDefaultEngine builds an engine with resource and slot restrictions.
func NewDefaultEngine() *Engine {
	e := NewEngine()
	e.Register(NewCPURule())
	e.Register(NewPowergridRule())
	e.Register(NewCalibrationRule())
	e.Register(NewSlotCountRule("high_slots", domain.AttrHiSlots, domain.EffectHiPower))
	e.Register(NewSlotCountRule("medium_slots", domain.AttrMedSlots, domain.EffectMedPower))
	e.Register(NewSlotCountRule("low_slots", domain.AttrLowSlots, domain.EffectLoPower))
	e.Register(NewSlotCountRule("rig_slots", domain.AttrRigSlots, domain.EffectRigSlot))
	return e
}

// Register appends a rule.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate executes all rules and merges their results.
func (e *Engine) Evaluate(ctx context.Context, view View) (domain.Result, error) {
	var combined domain.Result
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return domain.Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Validate evaluates the rules and returns a domain.RuleViolationError when
// any violation blocks the fit.
func (e *Engine) Validate(ctx context.Context, view View) (domain.Result, error) {
	res, err := e.Evaluate(ctx, view)
	if err != nil {
		return res, err
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	return res, nil
}

// ResourceUseRule compares the sum of a use attribute over qualifying
// holders with an output attribute of the ship. A holder qualifies when it
// has activated State and, if Effect is set, runs Effect.
type ResourceUseRule struct {
	RuleName string
	Output   domain.AttrID
	Use      domain.AttrID
	State    domain.State
	Effect   domain.EffectID
}

// NewCPURule restricts cpu use of online holders.
func NewCPURule() ResourceUseRule {
	return ResourceUseRule{RuleName: "cpu", Output: domain.AttrCPUOutput, Use: domain.AttrCPU, State: domain.StateOnline}
}

// NewPowergridRule restricts power use of online holders.
func NewPowergridRule() ResourceUseRule {
	return ResourceUseRule{RuleName: "powergrid", Output: domain.AttrPowerOutput, Use: domain.AttrPower, State: domain.StateOnline}
}

// NewCalibrationRule restricts upgrade cost of fitted rigs.
func NewCalibrationRule() ResourceUseRule {
	return ResourceUseRule{
		RuleName: "calibration",
		Output:   domain.AttrUpgradeCapacity,
		Use:      domain.AttrUpgradeCost,
		State:    domain.StateOffline,
		Effect:   domain.EffectRigSlot,
	}
}

func (r ResourceUseRule) Name() string { return r.RuleName }

func (r ResourceUseRule) Evaluate(_ context.Context, view View) (domain.Result, error) {
	ship := view.Ship()
	if ship == nil {
		return domain.Result{}, nil
	}
	output, err := attrOrZero(ship, r.Output)
	if err != nil {
		return domain.Result{}, err
	}
	var used float64
	var users []*core.Holder
	for _, h := range view.Holders() {
		if h == ship || !view.Active(h, r.State) {
			continue
		}
		if r.Effect != 0 && !view.Running(h, r.Effect) {
			continue
		}
		v, err := attrOrZero(h, r.Use)
		if err != nil {
			return domain.Result{}, err
		}
		if v > 0 {
			used += v
			users = append(users, h)
		}
	}
	if used <= output {
		return domain.Result{}, nil
	}
	res := domain.Result{}
	for _, h := range users {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.RuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s use %.2f exceeds output %.2f", r.RuleName, used, output),
			HolderID: h.ID(),
			TypeID:   h.TypeID(),
		})
	}
	return res, nil
}

// SlotCountRule limits how many holders occupying a slot kind the ship
// carries. Occupancy is decided by the slot effect on the holder's type.
type SlotCountRule struct {
	RuleName string
	Slots    domain.AttrID
	Effect   domain.EffectID
}

// NewSlotCountRule builds a slot rule.
func NewSlotCountRule(name string, slots domain.AttrID, effect domain.EffectID) SlotCountRule {
	return SlotCountRule{RuleName: name, Slots: slots, Effect: effect}
}

func (r SlotCountRule) Name() string { return r.RuleName }

func (r SlotCountRule) Evaluate(_ context.Context, view View) (domain.Result, error) {
	ship := view.Ship()
	if ship == nil {
		return domain.Result{}, nil
	}
	total, err := attrOrZero(ship, r.Slots)
	if err != nil {
		return domain.Result{}, err
	}
	var used []*core.Holder
	for _, h := range view.Holders() {
		if h == ship || h.Type() == nil || !h.Type().HasEffect(r.Effect) {
			continue
		}
		used = append(used, h)
	}
	res := domain.Result{}
	for i, h := range used {
		if float64(i+1) <= total {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.RuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s used %d of %.0f", r.RuleName, len(used), total),
			HolderID: h.ID(),
			TypeID:   h.TypeID(),
		})
	}
	return res, nil
}

// attrOrZero reads attr, treating a missing value or definition as zero.
func attrOrZero(h *core.Holder, attr domain.AttrID) (float64, error) {
	v, err := h.Attributes().Get(attr)
	var nv *domain.NoValueError
	var nf domain.ErrNotFound
	if errors.As(err, &nv) || errors.As(err, &nf) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %d on %s: %w", attr, h.ID(), err)
	}
	return v, nil
}
