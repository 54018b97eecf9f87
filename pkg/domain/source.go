package domain

// AttributeDef carries calculation metadata for one attribute.
type AttributeDef struct {
	ID           AttrID
	Name         string
	DefaultValue *float64
	MaxAttribute *AttrID
	HighIsGood   bool
	Stackable    bool
}

// ItemType is the template a holder is built from.
type ItemType struct {
	ID             TypeID
	Name           string
	GroupID        GroupID
	CategoryID     CategoryID
	Attributes     map[AttrID]float64
	Effects        []*Effect
	RequiredSkills []TypeID
}

// Attribute returns the base value declared by the type.
func (t *ItemType) Attribute(id AttrID) (float64, bool) {
	v, ok := t.Attributes[id]
	return v, ok
}

// Effect looks up one of the type's effects.
func (t *ItemType) Effect(id EffectID) (*Effect, bool) {
	for _, e := range t.Effects {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// HasEffect reports whether the type declares the effect.
func (t *ItemType) HasEffect(id EffectID) bool {
	_, ok := t.Effect(id)
	return ok
}

// Source supplies item types and attribute definitions to a fit.
type Source interface {
	Name() string
	Type(id TypeID) (*ItemType, error)
	Attribute(id AttrID) (*AttributeDef, error)
}

// Well-known attribute ids.
const (
	AttrCapacity         AttrID = 38
	AttrPowerOutput      AttrID = 11
	AttrLowSlots         AttrID = 12
	AttrMedSlots         AttrID = 13
	AttrHiSlots          AttrID = 14
	AttrPower            AttrID = 30
	AttrCPUOutput        AttrID = 48
	AttrCPU              AttrID = 50
	AttrRequiredSkill1   AttrID = 182
	AttrRequiredSkill2   AttrID = 183
	AttrRequiredSkill3   AttrID = 184
	AttrSkillLevel       AttrID = 280
	AttrUpgradeCapacity  AttrID = 1132
	AttrRigSlots         AttrID = 1137
	AttrUpgradeCost      AttrID = 1153
	AttrRequiredSkill4   AttrID = 1285
	AttrRequiredSkill5   AttrID = 1289
	AttrRequiredSkill6   AttrID = 1290
)

// RequiredSkillAttrs lists the attributes holding required skill type ids.
var RequiredSkillAttrs = []AttrID{
	AttrRequiredSkill1, AttrRequiredSkill2, AttrRequiredSkill3,
	AttrRequiredSkill4, AttrRequiredSkill5, AttrRequiredSkill6,
}

// Well-known effect ids.
const (
	EffectLoPower  EffectID = 11
	EffectHiPower  EffectID = 12
	EffectMedPower EffectID = 13
	EffectOnline   EffectID = 16
	EffectRigSlot  EffectID = 2663
)

// Well-known item categories.
const (
	CategoryIDShip      CategoryID = 6
	CategoryIDModule    CategoryID = 7
	CategoryIDCharge    CategoryID = 8
	CategoryIDSkill     CategoryID = 16
	CategoryIDDrone     CategoryID = 18
	CategoryIDImplant   CategoryID = 20
	CategoryIDSubsystem CategoryID = 32
)

// DefaultPenaltyImmune lists the categories whose contributions are never
// stacking penalized.
func DefaultPenaltyImmune() []CategoryID {
	return []CategoryID{CategoryIDShip, CategoryIDCharge, CategoryIDSkill, CategoryIDImplant, CategoryIDSubsystem}
}
