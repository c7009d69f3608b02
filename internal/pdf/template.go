// Package pdf renders PartPulse documents from JSON layout templates.
//
// A template describes the page, an optional header and an ordered list of
// sections. Sections bind to record data by dot path and are drawn top to
// bottom with a single vertical cursor.
package pdf

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TemplateTransfer = "internal-transfer"
	TemplateClaim    = "warranty-claim"
)

const (
	SectionFields    = "fields"
	SectionTable     = "table"
	SectionText      = "text"
	SectionCheckbox  = "checkbox"
	SectionSignature = "signature"
	SectionStamp     = "stamp"
	SectionSpacer    = "spacer"
	SectionLine      = "line"
)

type PageConfig struct {
	Size        string  `json:"size"`
	Margin      float64 `json:"margin"`
	Orientation string  `json:"orientation,omitempty"`
}

type LogoConfig struct {
	Src    string  `json:"src"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type TitleConfig struct {
	Text      string  `json:"text"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y"`
	Align     string  `json:"align,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	Bold      bool    `json:"bold,omitempty"`
	Underline bool    `json:"underline,omitempty"`
}

type HeaderConfig struct {
	Logos    []LogoConfig `json:"logos,omitempty"`
	Title    *TitleConfig `json:"title,omitempty"`
	Subtitle *TitleConfig `json:"subtitle,omitempty"`
}

type FieldConfig struct {
	Label      string  `json:"label"`
	Binding    string  `json:"binding"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Width      float64 `json:"width,omitempty"`
	LabelWidth float64 `json:"labelWidth,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	Format     string  `json:"format,omitempty"`
}

type TableColumnConfig struct {
	Header  string  `json:"header"`
	Binding string  `json:"binding"`
	Width   float64 `json:"width"`
	Format  string  `json:"format,omitempty"`
}

type TableConfig struct {
	Columns      []TableColumnConfig `json:"columns"`
	RowsBinding  string              `json:"rowsBinding"`
	X            float64             `json:"x,omitempty"`
	HeaderHeight float64             `json:"headerHeight,omitempty"`
	RowHeight    float64             `json:"rowHeight,omitempty"`
	FontSize     float64             `json:"fontSize,omitempty"`
}

type TextConfig struct {
	Content   string  `json:"content,omitempty"`
	Binding   string  `json:"binding,omitempty"`
	X         float64 `json:"x,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	Align     string  `json:"align,omitempty"`
	Multiline bool    `json:"multiline,omitempty"`
}

type CheckboxConfig struct {
	Label   string  `json:"label"`
	Binding string  `json:"binding"`
	X       float64 `json:"x,omitempty"`
	Size    float64 `json:"size,omitempty"`
}

type SignatureConfig struct {
	Label   string  `json:"label,omitempty"`
	Binding string  `json:"binding,omitempty"`
	X       float64 `json:"x,omitempty"`
	Width   float64 `json:"width,omitempty"`
}

type StampConfig struct {
	Text     string  `json:"text"`
	Binding  string  `json:"binding"`
	X        float64 `json:"x,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Color    string  `json:"color,omitempty"`
}

type LineConfig struct {
	X1          float64 `json:"x1,omitempty"`
	X2          float64 `json:"x2,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

type SpacerConfig struct {
	Height float64 `json:"height"`
}

// Section is one block of the layout. Exactly the member matching Type is used.
type Section struct {
	Type      string           `json:"type"`
	Label     string           `json:"label,omitempty"`
	Y         float64          `json:"y,omitempty"`
	Fields    []FieldConfig    `json:"fields,omitempty"`
	Table     *TableConfig     `json:"table,omitempty"`
	Text      *TextConfig      `json:"text,omitempty"`
	Checkbox  *CheckboxConfig  `json:"checkbox,omitempty"`
	Signature *SignatureConfig `json:"signature,omitempty"`
	Stamp     *StampConfig     `json:"stamp,omitempty"`
	Line      *LineConfig      `json:"line,omitempty"`
	Spacer    *SpacerConfig    `json:"spacer,omitempty"`
}

type Template struct {
	Page     PageConfig    `json:"page"`
	Header   *HeaderConfig `json:"header,omitempty"`
	Sections []Section     `json:"sections"`
}

// ParseTemplate decodes and validates a JSON template, filling page defaults.
func ParseTemplate(raw []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Template) normalize() error {
	switch strings.ToLower(t.Page.Size) {
	case "":
		t.Page.Size = "A4"
	case "a4", "letter", "legal":
	default:
		return fmt.Errorf("template: unsupported page size %q", t.Page.Size)
	}
	switch strings.ToLower(t.Page.Orientation) {
	case "":
		t.Page.Orientation = "portrait"
	case "portrait", "landscape":
	default:
		return fmt.Errorf("template: unsupported orientation %q", t.Page.Orientation)
	}
	if t.Page.Margin <= 0 {
		t.Page.Margin = 40
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template: no sections")
	}

	for i, s := range t.Sections {
		var ok bool
		switch s.Type {
		case SectionFields:
			ok = len(s.Fields) > 0
		case SectionTable:
			ok = s.Table != nil && len(s.Table.Columns) > 0 && s.Table.RowsBinding != ""
		case SectionText:
			ok = s.Text != nil
		case SectionCheckbox:
			ok = s.Checkbox != nil && s.Checkbox.Binding != ""
		case SectionSignature:
			ok = s.Signature != nil
		case SectionStamp:
			ok = s.Stamp != nil && s.Stamp.Binding != ""
		case SectionSpacer:
			ok = s.Spacer != nil
		case SectionLine:
			ok = true
		default:
			return fmt.Errorf("template: section %d: unknown type %q", i, s.Type)
		}
		if !ok {
			return fmt.Errorf("template: section %d (%s): missing configuration", i, s.Type)
		}
	}
	return nil
}
