// Package fitfile reads YAML fit descriptions and assembles them into fits.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fitcore/internal/core"
	"fitcore/pkg/domain"
)

// Document describes one fit.
type Document struct {
	Name      string      `yaml:"name"`
	Ship      int32       `yaml:"ship"`
	Character int32       `yaml:"character,omitempty"`
	Skills    []SkillDoc  `yaml:"skills,omitempty"`
	Implants  []int32     `yaml:"implants,omitempty"`
	Modules   []ModuleDoc `yaml:"modules,omitempty"`
	Rigs      []int32     `yaml:"rigs,omitempty"`
	Drones    []DroneDoc  `yaml:"drones,omitempty"`
}

// SkillDoc is a trained skill.
type SkillDoc struct {
	Type  int32 `yaml:"type"`
	Level int   `yaml:"level"`
}

// ModuleDoc is a fitted module. Effects maps effect ids to mode names.
type ModuleDoc struct {
	Type    int32            `yaml:"type"`
	State   string           `yaml:"state,omitempty"`
	Effects map[int32]string `yaml:"effects,omitempty"`
}

// DroneDoc is a group of identical drones.
type DroneDoc struct {
	Type  int32  `yaml:"type"`
	Count int    `yaml:"count,omitempty"`
	State string `yaml:"state,omitempty"`
}

// Parse decodes a fit document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	if doc.Ship == 0 {
		return nil, errors.New("fit has no ship")
	}
	for _, s := range doc.Skills {
		if s.Level < 0 || s.Level > 5 {
			return nil, fmt.Errorf("skill %d level %d out of range", s.Type, s.Level)
		}
	}
	return &doc, nil
}

// LoadFile reads a fit document; the name defaults to the file name.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fit: %w", err)
	}
	defer func() { _ = f.Close() }()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Build assembles a fit from the document against src.
func (d *Document) Build(src domain.Source, opts ...core.Option) (*core.Fit, error) {
	fit := core.NewFit(src, opts...)
	if err := fit.SetShip(core.NewShip(domain.TypeID(d.Ship))); err != nil {
		return nil, fmt.Errorf("ship %d: %w", d.Ship, err)
	}
	if d.Character != 0 {
		if err := fit.SetCharacter(core.NewCharacter(domain.TypeID(d.Character))); err != nil {
			return nil, fmt.Errorf("character %d: %w", d.Character, err)
		}
	}
	for _, s := range d.Skills {
		if err := fit.Add(core.NewSkill(domain.TypeID(s.Type), s.Level)); err != nil {
			return nil, fmt.Errorf("skill %d: %w", s.Type, err)
		}
	}
	for _, id := range d.Implants {
		if err := fit.Add(core.NewImplant(domain.TypeID(id))); err != nil {
			return nil, fmt.Errorf("implant %d: %w", id, err)
		}
	}
	for _, m := range d.Modules {
		if err := addModule(fit, m); err != nil {
			return nil, err
		}
	}
	for _, id := range d.Rigs {
		if err := fit.Add(core.NewModule(domain.TypeID(id))); err != nil {
			return nil, fmt.Errorf("rig %d: %w", id, err)
		}
	}
	for _, dr := range d.Drones {
		state, err := domain.ParseState(dr.State)
		if err != nil {
			return nil, fmt.Errorf("drone %d: %w", dr.Type, err)
		}
		count := max(dr.Count, 1)
		for i := 0; i < count; i++ {
			if err := fit.Add(core.NewDrone(domain.TypeID(dr.Type), core.WithState(state))); err != nil {
				return nil, fmt.Errorf("drone %d: %w", dr.Type, err)
			}
		}
	}
	return fit, nil
}

func addModule(fit *core.Fit, m ModuleDoc) error {
	state, err := domain.ParseState(m.State)
	if err != nil {
		return fmt.Errorf("module %d: %w", m.Type, err)
	}
	h := core.NewModule(domain.TypeID(m.Type), core.WithState(state))
	if err := fit.Add(h); err != nil {
		return fmt.Errorf("module %d: %w", m.Type, err)
	}
	for id, name := range m.Effects {
		mode, err := domain.ParseEffectMode(name)
		if err != nil {
			return fmt.Errorf("module %d effect %d: %w", m.Type, id, err)
		}
		if err := h.SetEffectMode(domain.EffectID(id), mode); err != nil {
			return fmt.Errorf("module %d effect %d: %w", m.Type, id, err)
		}
	}
	return nil
}
