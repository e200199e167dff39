package camera

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"bm-camera-control/pkg/models"
)

// Field identifies one editable control on the panel
type Field int

const (
	FieldHostname Field = iota
	FieldISO
	FieldGain
	FieldShutter
	FieldIris
	FieldFocus
	FieldZoom
	FieldWhiteBalance
	FieldTint
	FieldNDFilter
)

type fieldSpec struct {
	name    string
	path    string
	key     string
	integer bool
}

var fieldSpecs = []fieldSpec{
	FieldHostname:     {name: "Hostname"},
	FieldISO:          {name: "ISO", path: models.PathISO, key: "iso", integer: true},
	FieldGain:         {name: "Gain", path: models.PathGain, key: "gain", integer: true},
	FieldShutter:      {name: "Shutter", path: models.PathShutter, key: "shutterSpeed", integer: true},
	FieldIris:         {name: "Iris", path: models.PathIris, key: "apertureStop"},
	FieldFocus:        {name: "Focus", path: models.PathFocus, key: "normalised"},
	FieldZoom:         {name: "Zoom", path: models.PathZoom, key: "focalLength", integer: true},
	FieldWhiteBalance: {name: "WhiteBalance", path: models.PathWhiteBalance, key: "whiteBalance", integer: true},
	FieldTint:         {name: "Tint", path: models.PathWhiteBalanceTint, key: "whiteBalanceTint", integer: true},
	FieldNDFilter:     {name: "NDFilter", path: models.PathNDFilter, key: "stop"},
}

// Fields lists every field in panel order
func Fields() []Field {
	out := make([]Field, len(fieldSpecs))
	for i := range fieldSpecs {
		out[i] = Field(i)
	}
	return out
}

func (f Field) valid() bool {
	return f >= 0 && int(f) < len(fieldSpecs)
}

func (f Field) String() string {
	if !f.valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldSpecs[f].name
}

// Path is the endpoint backing the field; empty for Hostname
func (f Field) Path() string {
	if !f.valid() {
		return ""
	}
	return fieldSpecs[f].path
}

func ParseField(s string) (Field, error) {
	for i, spec := range fieldSpecs {
		if strings.EqualFold(spec.name, s) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(b []byte) error {
	v, err := ParseField(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Format renders the field's value out of its endpoint body. Missing keys
// render empty.
func (f Field) Format(raw json.RawMessage) string {
	if !f.valid() || fieldSpecs[f].key == "" || len(raw) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	switch v := obj[fieldSpecs[f].key].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Body builds the PUT body for a typed-in value
func (f Field) Body(input string) (map[string]any, error) {
	if !f.valid() || fieldSpecs[f].key == "" {
		return nil, fmt.Errorf("%s has no endpoint: %w", f, ErrInvalidValue)
	}
	spec := fieldSpecs[f]
	input = strings.TrimSpace(input)

	if spec.integer {
		n, err := strconv.Atoi(input)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a whole number: %w", f, input, ErrInvalidValue)
		}
		return map[string]any{spec.key: n}, nil
	}

	v, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number: %w", f, input, ErrInvalidValue)
	}
	return map[string]any{spec.key: v}, nil
}
