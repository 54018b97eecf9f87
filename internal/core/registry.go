package core

import (
	"fmt"
	"slices"

	"fitcore/pkg/domain"
)

// Affector is a registration entry: one modifier carried by one holder while
// the effect owning it runs.
type Affector struct {
	Holder   *Holder
	Modifier *domain.Modifier
	Effect   domain.EffectID
	seq      uint64
}

// Seq returns the registration sequence, used as the deterministic tie-break.
func (a *Affector) Seq() uint64 { return a.seq }

func (a *Affector) String() string {
	return fmt.Sprintf("%s/%d#%d", a.Holder.id, a.Effect, a.seq)
}

type bucketKind int8

const (
	bucketDirectHolder bucketKind = iota
	bucketDirectLocation
	bucketLocation
	bucketGroup
	bucketSkill
	bucketOwnerSkill
)

// bucket keys both sides of the registry. Affectees live under location,
// group, skill and owner-skill buckets; affectors additionally use the two
// direct kinds.
type bucket struct {
	kind   bucketKind
	loc    domain.Location
	value  int32
	holder *Holder
}

type holderSet map[*Holder]struct{}

type affectorSet map[*Affector]struct{}

// registry indexes which affectors reach which holders. It is owned by one
// fit and is never shared.
type registry struct {
	fit *Fit

	holdersByBucket map[bucket]holderSet
	affecteeKeys    map[*Holder][]bucket

	entriesByBucket map[bucket]affectorSet
	affectorKeys    map[*Affector]bucket
	bySource        map[*Holder]affectorSet
}

func newRegistry(fit *Fit) *registry {
	return &registry{
		fit:             fit,
		holdersByBucket: make(map[bucket]holderSet),
		affecteeKeys:    make(map[*Holder][]bucket),
		entriesByBucket: make(map[bucket]affectorSet),
		affectorKeys:    make(map[*Affector]bucket),
		bySource:        make(map[*Holder]affectorSet),
	}
}

// affecteeBuckets lists every bucket the holder is reachable through.
func affecteeBuckets(h *Holder) []bucket {
	var keys []bucket
	if h.itemType == nil {
		return keys
	}
	if loc := h.location; loc != domain.LocationNone {
		keys = append(keys,
			bucket{kind: bucketLocation, loc: loc},
			bucket{kind: bucketGroup, loc: loc, value: int32(h.itemType.GroupID)},
		)
		for _, skill := range h.itemType.RequiredSkills {
			keys = append(keys, bucket{kind: bucketSkill, loc: loc, value: int32(skill)})
		}
	}
	if h.ownerModifiable {
		for _, skill := range h.itemType.RequiredSkills {
			keys = append(keys, bucket{kind: bucketOwnerSkill, value: int32(skill)})
		}
	}
	return keys
}

func (r *registry) registerAffectee(h *Holder) {
	if _, ok := r.affecteeKeys[h]; ok {
		return
	}
	keys := affecteeBuckets(h)
	for _, key := range keys {
		set, ok := r.holdersByBucket[key]
		if !ok {
			set = make(holderSet)
			r.holdersByBucket[key] = set
		}
		set[h] = struct{}{}
	}
	r.affecteeKeys[h] = keys
}

// unregisterAffectee removes the holder from the buckets it was registered
// under. Unknown holders are ignored.
func (r *registry) unregisterAffectee(h *Holder) {
	keys, ok := r.affecteeKeys[h]
	if !ok {
		return
	}
	for _, key := range keys {
		set := r.holdersByBucket[key]
		delete(set, h)
		if len(set) == 0 {
			delete(r.holdersByBucket, key)
		}
	}
	delete(r.affecteeKeys, h)
}

// affectorBucket resolves where an entry is indexed.
func (r *registry) affectorBucket(a *Affector) (bucket, error) {
	mod := a.Modifier
	switch mod.Filter {
	case domain.FilterNone:
		switch mod.Location {
		case domain.LocationSelf:
			return bucket{kind: bucketDirectHolder, holder: a.Holder}, nil
		case domain.LocationShip, domain.LocationCharacter:
			return bucket{kind: bucketDirectLocation, loc: mod.Location}, nil
		default:
			return bucket{}, r.dataError(a, fmt.Sprintf("unsupported location %s for direct modification", mod.Location))
		}
	case domain.FilterAll:
		loc, err := r.filterLocation(a)
		if err != nil {
			return bucket{}, err
		}
		return bucket{kind: bucketLocation, loc: loc}, nil
	case domain.FilterGroup:
		loc, err := r.filterLocation(a)
		if err != nil {
			return bucket{}, err
		}
		return bucket{kind: bucketGroup, loc: loc, value: mod.FilterValue}, nil
	case domain.FilterSkill:
		loc, err := r.filterLocation(a)
		if err != nil {
			return bucket{}, err
		}
		return bucket{kind: bucketSkill, loc: loc, value: r.skillValue(a)}, nil
	case domain.FilterOwnerSkill:
		if mod.Location != domain.LocationCharacter {
			return bucket{}, r.dataError(a, fmt.Sprintf("unsupported location %s for owner skill filter", mod.Location))
		}
		return bucket{kind: bucketOwnerSkill, value: r.skillValue(a)}, nil
	default:
		return bucket{}, r.dataError(a, fmt.Sprintf("unknown filter %s", mod.Filter))
	}
}

func (r *registry) skillValue(a *Affector) int32 {
	if a.Modifier.FilterValue == domain.FilterValueSelf {
		return int32(a.Holder.typeID)
	}
	return a.Modifier.FilterValue
}

// filterLocation resolves the location of a filtered modifier. Self only
// makes sense for modifiers carried by the ship or the character.
func (r *registry) filterLocation(a *Affector) (domain.Location, error) {
	switch loc := a.Modifier.Location; loc {
	case domain.LocationSelf:
		switch a.Holder {
		case r.fit.ship:
			return domain.LocationShip, nil
		case r.fit.character:
			return domain.LocationCharacter, nil
		}
		return domain.LocationNone, r.dataError(a, "self location used by a holder that is neither ship nor character")
	case domain.LocationCharacter, domain.LocationShip, domain.LocationSpace:
		return loc, nil
	default:
		return domain.LocationNone, r.dataError(a, fmt.Sprintf("unsupported location %s for filtered modification", loc))
	}
}

func (r *registry) dataError(a *Affector, reason string) error {
	return &domain.DataError{Reason: reason, HolderID: a.Holder.id, Modifier: a.Modifier}
}

// registerAffector indexes the entry. Untracked modifiers are ignored.
func (r *registry) registerAffector(a *Affector) error {
	if !a.Modifier.Tracked() {
		return nil
	}
	if _, ok := r.affectorKeys[a]; ok {
		return nil
	}
	key, err := r.affectorBucket(a)
	if err != nil {
		return err
	}
	set, ok := r.entriesByBucket[key]
	if !ok {
		set = make(affectorSet)
		r.entriesByBucket[key] = set
	}
	set[a] = struct{}{}
	r.affectorKeys[a] = key

	owned, ok := r.bySource[a.Holder]
	if !ok {
		owned = make(affectorSet)
		r.bySource[a.Holder] = owned
	}
	owned[a] = struct{}{}
	return nil
}

// unregisterAffector drops the entry. Entries that are not registered are
// ignored.
func (r *registry) unregisterAffector(a *Affector) {
	key, ok := r.affectorKeys[a]
	if !ok {
		return
	}
	set := r.entriesByBucket[key]
	delete(set, a)
	if len(set) == 0 {
		delete(r.entriesByBucket, key)
	}
	delete(r.affectorKeys, a)

	owned := r.bySource[a.Holder]
	delete(owned, a)
	if len(owned) == 0 {
		delete(r.bySource, a.Holder)
	}
}

func (r *registry) registered(a *Affector) bool {
	_, ok := r.affectorKeys[a]
	return ok
}

// affectees returns the holders a registered entry currently modifies.
func (r *registry) affectees(a *Affector) ([]*Holder, error) {
	key, ok := r.affectorKeys[a]
	if !ok {
		var err error
		if key, err = r.affectorBucket(a); err != nil {
			return nil, err
		}
	}
	switch key.kind {
	case bucketDirectHolder:
		if key.holder.fit != r.fit {
			return nil, nil
		}
		return []*Holder{key.holder}, nil
	case bucketDirectLocation:
		var target *Holder
		switch key.loc {
		case domain.LocationShip:
			target = r.fit.ship
		case domain.LocationCharacter:
			target = r.fit.character
		}
		if target == nil || target.fit != r.fit {
			return nil, nil
		}
		return []*Holder{target}, nil
	default:
		set := r.holdersByBucket[key]
		out := make([]*Holder, 0, len(set))
		for h := range set {
			out = append(out, h)
		}
		return out, nil
	}
}

// affectors returns every entry modifying the holder, ordered by
// registration sequence.
func (r *registry) affectors(h *Holder) []*Affector {
	var out []*Affector
	collect := func(key bucket) {
		for a := range r.entriesByBucket[key] {
			out = append(out, a)
		}
	}
	collect(bucket{kind: bucketDirectHolder, holder: h})
	if h == r.fit.ship {
		collect(bucket{kind: bucketDirectLocation, loc: domain.LocationShip})
	}
	if h == r.fit.character {
		collect(bucket{kind: bucketDirectLocation, loc: domain.LocationCharacter})
	}
	for _, key := range r.affecteeKeys[h] {
		collect(key)
	}
	slices.SortFunc(out, func(a, b *Affector) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return slices.CompactFunc(out, func(a, b *Affector) bool { return a == b })
}

// sourcedBy returns the registered entries carried by the holder.
func (r *registry) sourcedBy(h *Holder) []*Affector {
	owned := r.bySource[h]
	out := make([]*Affector, 0, len(owned))
	for a := range owned {
		out = append(out, a)
	}
	return out
}

// counts reports the number of affectee and affector registrations.
func (r *registry) counts() (affectees, affectors int) {
	for _, set := range r.holdersByBucket {
		affectees += len(set)
	}
	for _, set := range r.entriesByBucket {
		affectors += len(set)
	}
	return affectees, affectors
}
