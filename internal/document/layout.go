package document

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

//go:embed layout.yaml
var defaultLayoutYAML []byte

// Rect is a widget rectangle: lower left corner plus size, in points.
type Rect struct {
	X, Y, W, H float64
}

// UnmarshalYAML reads a rect written as [x, y, width, height].
func (r *Rect) UnmarshalYAML(node *yaml.Node) error {
	var v []float64
	if err := node.Decode(&v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("line %d: rect needs 4 numbers, got %d", node.Line, len(v))
	}
	r.X, r.Y, r.W, r.H = v[0], v[1], v[2], v[3]
	return nil
}

// FieldPlacement positions one schema field on the page.
type FieldPlacement struct {
	Name      fields.Name `yaml:"name"`
	Label     string      `yaml:"label"`
	LabelX    float64     `yaml:"label_x"`
	Rect      Rect        `yaml:"rect"`
	Multiline bool        `yaml:"multiline"`
}

// Layout is the fixed single page arrangement of a contract document.
type Layout struct {
	Page struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"page"`
	Title struct {
		Text string  `yaml:"text"`
		Y    float64 `yaml:"y"`
		Size float64 `yaml:"size"`
	} `yaml:"title"`
	Font struct {
		Size        float64 `yaml:"size"`
		LabelSize   float64 `yaml:"label_size"`
		SectionSize float64 `yaml:"section_size"`
	} `yaml:"font"`
	Sections []struct {
		Title string  `yaml:"title"`
		Y     float64 `yaml:"y"`
	} `yaml:"sections"`
	Fields     []FieldPlacement `yaml:"fields"`
	Signatures []struct {
		Label string  `yaml:"label"`
		X     float64 `yaml:"x"`
		Y     float64 `yaml:"y"`
		Width float64 `yaml:"width"`
	} `yaml:"signatures"`
}

// DefaultLayout returns the embedded contract layout.
func DefaultLayout() (*Layout, error) {
	return ParseLayout(defaultLayoutYAML)
}

// ParseLayout decodes and validates a layout description.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that the page is usable and every schema field is placed
// exactly once inside it.
func (l *Layout) Validate() error {
	if l.Page.Width <= 0 || l.Page.Height <= 0 {
		return fmt.Errorf("invalid page geometry %.2fx%.2f", l.Page.Width, l.Page.Height)
	}
	if l.Font.Size <= 0 {
		return fmt.Errorf("font size must be positive")
	}

	placed := make(map[fields.Name]bool, len(l.Fields))
	for _, f := range l.Fields {
		if !fields.IsKnown(string(f.Name)) {
			return fmt.Errorf("layout places unknown field %q", f.Name)
		}
		if placed[f.Name] {
			return fmt.Errorf("layout places field %q twice", f.Name)
		}
		placed[f.Name] = true

		r := f.Rect
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("field %q has an empty rect", f.Name)
		}
		if r.X < 0 || r.Y < 0 || r.X+r.W > l.Page.Width || r.Y+r.H > l.Page.Height {
			return fmt.Errorf("field %q lies outside the page", f.Name)
		}
	}
	for _, n := range fields.Names() {
		if !placed[n] {
			return fmt.Errorf("layout does not place field %q", n)
		}
	}
	return nil
}

// Placement returns the placement of a field.
func (l *Layout) Placement(name fields.Name) (FieldPlacement, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldPlacement{}, false
}
