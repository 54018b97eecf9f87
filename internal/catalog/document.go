package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a catalog.
type Document struct {
	Name       string         `yaml:"name" json:"name"`
	Attributes []AttributeDoc `yaml:"attributes" json:"attributes"`
	Effects    []EffectDoc    `yaml:"effects" json:"effects"`
	Types      []TypeDoc      `yaml:"types" json:"types"`
}

// AttributeDoc describes one attribute definition.
type AttributeDoc struct {
	ID           int32    `yaml:"id" json:"id"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty"`
	Default      *float64 `yaml:"default,omitempty" json:"default,omitempty"`
	MaxAttribute *int32   `yaml:"max_attribute,omitempty" json:"max_attribute,omitempty"`
	HighIsGood   bool     `yaml:"high_is_good" json:"high_is_good"`
	Stackable    bool     `yaml:"stackable" json:"stackable"`
}

// EffectDoc describes one effect and its modifiers.
type EffectDoc struct {
	ID        int32         `yaml:"id" json:"id"`
	Name      string        `yaml:"name,omitempty" json:"name,omitempty"`
	Category  string        `yaml:"category,omitempty" json:"category,omitempty"`
	Modifiers []ModifierDoc `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
}

// ModifierDoc describes one modifier. When Script is set the operator and
// value come from the script and Operator and Source may be empty.
type ModifierDoc struct {
	Filter      string      `yaml:"filter,omitempty" json:"filter,omitempty"`
	Location    string      `yaml:"location" json:"location"`
	FilterValue int32       `yaml:"filter_value,omitempty" json:"filter_value,omitempty"`
	Target      int32       `yaml:"target" json:"target"`
	Source      int32       `yaml:"source,omitempty" json:"source,omitempty"`
	Operator    string      `yaml:"operator,omitempty" json:"operator,omitempty"`
	Scope       string      `yaml:"scope,omitempty" json:"scope,omitempty"`
	Instant     bool        `yaml:"instant,omitempty" json:"instant,omitempty"`
	Script      string      `yaml:"script,omitempty" json:"script,omitempty"`
	Depends     []SourceDoc `yaml:"depends,omitempty" json:"depends,omitempty"`
}

// SourceDoc names an attribute a script reads.
type SourceDoc struct {
	Location string `yaml:"location" json:"location"`
	Attr     int32  `yaml:"attr" json:"attr"`
}

// TypeDoc describes one item type.
type TypeDoc struct {
	ID             int32             `yaml:"id" json:"id"`
	Name           string            `yaml:"name,omitempty" json:"name,omitempty"`
	Group          int32             `yaml:"group,omitempty" json:"group,omitempty"`
	Category       int32             `yaml:"category,omitempty" json:"category,omitempty"`
	Attributes     map[int32]float64 `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Effects        []int32           `yaml:"effects,omitempty" json:"effects,omitempty"`
	RequiredSkills []int32           `yaml:"required_skills,omitempty" json:"required_skills,omitempty"`
}

// ParseYAML decodes a YAML document.
func ParseYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode yaml catalog: %w", err)
	}
	return &doc, nil
}

// ParseJSON decodes a JSON document.
func ParseJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json catalog: %w", err)
	}
	return &doc, nil
}

// Parse decodes r as JSON when format is "json" and as YAML otherwise.
func Parse(r io.Reader, format string) (*Document, error) {
	if strings.EqualFold(format, "json") {
		return ParseJSON(r)
	}
	return ParseYAML(r)
}

// LoadFile reads a document, picking the format from the file extension.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	doc, err := Parse(f, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// EncodeYAML writes the document as YAML.
func (d *Document) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode yaml catalog: %w", err)
	}
	return enc.Close()
}

// EncodeJSON writes the document as indented JSON.
func (d *Document) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode json catalog: %w", err)
	}
	return nil
}

func formatOf(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return "json"
	}
	return "yaml"
}

// Bucket names used when a document is split for SQL stores.
const (
	BucketAttributes = "attributes"
	BucketEffects    = "effects"
	BucketTypes      = "types"
)

// Buckets splits the document into JSON payloads keyed by bucket name.
func (d *Document) Buckets() (map[string][]byte, error) {
	out := make(map[string][]byte, 3)
	for bucket, v := range map[string]any{
		BucketAttributes: d.Attributes,
		BucketEffects:    d.Effects,
		BucketTypes:      d.Types,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DocumentFromBuckets joins bucket payloads back into a document. Unknown
// buckets are ignored.
func DocumentFromBuckets(name string, buckets map[string][]byte) (*Document, error) {
	doc := &Document{Name: name}
	targets := map[string]any{
		BucketAttributes: &doc.Attributes,
		BucketEffects:    &doc.Effects,
		BucketTypes:      &doc.Types,
	}
	for bucket, payload := range buckets {
		target, ok := targets[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return doc, nil
}
