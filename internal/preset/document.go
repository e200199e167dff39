package preset

import (
	"encoding/json"
	"fmt"

	"bm-camera-control/pkg/models"
)

// Document is a partial snapshot of camera settings. Endpoint bodies are kept
// verbatim; a nil field was not captured.
type Document struct {
	Focus           json.RawMessage  `json:"focus,omitempty"`
	AutoFocus       json.RawMessage  `json:"autoFocus,omitempty"`
	Iris            json.RawMessage  `json:"iris,omitempty"`
	Gain            json.RawMessage  `json:"gain,omitempty"`
	Shutter         json.RawMessage  `json:"shutter,omitempty"`
	WhiteBalance    *WhiteBalance    `json:"whiteBalance,omitempty"`
	NDFilter        json.RawMessage  `json:"ndFilter,omitempty"`
	ColorCorrection *ColorCorrection `json:"colorCorrection,omitempty"`
	Contrast        json.RawMessage  `json:"contrast,omitempty"`
	Color           *Color           `json:"color,omitempty"`
	AutoExposure    json.RawMessage  `json:"autoExposure,omitempty"`
}

type WhiteBalance struct {
	Value json.RawMessage `json:"value"`
	Tint  json.RawMessage `json:"tint"`
}

type ColorCorrection struct {
	Lift   json.RawMessage `json:"lift,omitempty"`
	Gamma  json.RawMessage `json:"gamma,omitempty"`
	Gain   json.RawMessage `json:"gain,omitempty"`
	Offset json.RawMessage `json:"offset,omitempty"`
}

// Color merges /colorCorrection/color and /colorCorrection/lumaContribution
type Color struct {
	Hue              float64 `json:"hue"`
	Saturation       float64 `json:"saturation"`
	LumaContribution float64 `json:"lumaContribution"`
}

// Keys lists the captured top-level keys, in apply order
func (d *Document) Keys() []string {
	var keys []string
	for _, e := range entries {
		if e.get(d) != nil {
			keys = append(keys, e.name)
		}
	}
	return keys
}

// entry binds one document key to its endpoints. get returns one body per
// path, or nil when the key is absent; set stores a full set of bodies.
type entry struct {
	name     string
	paths    []string
	included func(Selection) bool
	get      func(*Document) []json.RawMessage
	set      func(*Document, []json.RawMessage) error
}

func single(v json.RawMessage) []json.RawMessage {
	if len(v) == 0 || string(v) == "null" {
		return nil
	}
	return []json.RawMessage{v}
}

func ccPart(d *Document, pick func(*ColorCorrection) *json.RawMessage) []json.RawMessage {
	if d.ColorCorrection == nil {
		return nil
	}
	return single(*pick(d.ColorCorrection))
}

func setCCPart(d *Document, pick func(*ColorCorrection) *json.RawMessage, v json.RawMessage) {
	if d.ColorCorrection == nil {
		d.ColorCorrection = &ColorCorrection{}
	}
	*pick(d.ColorCorrection) = v
}

func simple(name, path string, included func(Selection) bool, field func(*Document) *json.RawMessage) entry {
	return entry{
		name:     name,
		paths:    []string{path},
		included: included,
		get:      func(d *Document) []json.RawMessage { return single(*field(d)) },
		set: func(d *Document, v []json.RawMessage) error {
			*field(d) = v[0]
			return nil
		},
	}
}

func colorCorrection(name, path string, included func(Selection) bool, pick func(*ColorCorrection) *json.RawMessage) entry {
	return entry{
		name:     "colorCorrection." + name,
		paths:    []string{path},
		included: included,
		get:      func(d *Document) []json.RawMessage { return ccPart(d, pick) },
		set: func(d *Document, v []json.RawMessage) error {
			setCCPart(d, pick, v[0])
			return nil
		},
	}
}

// entries is the fixed capture and apply order
var entries = []entry{
	simple("focus", models.PathFocus,
		func(s Selection) bool { return s.Focus },
		func(d *Document) *json.RawMessage { return &d.Focus }),
	simple("autoFocus", models.PathAutoFocus,
		func(s Selection) bool { return s.AutoFocus },
		func(d *Document) *json.RawMessage { return &d.AutoFocus }),
	simple("iris", models.PathIris,
		func(s Selection) bool { return s.Iris },
		func(d *Document) *json.RawMessage { return &d.Iris }),
	simple("gain", models.PathGain,
		func(s Selection) bool { return s.Gain },
		func(d *Document) *json.RawMessage { return &d.Gain }),
	simple("shutter", models.PathShutter,
		func(s Selection) bool { return s.Shutter },
		func(d *Document) *json.RawMessage { return &d.Shutter }),
	{
		name:     "whiteBalance",
		paths:    []string{models.PathWhiteBalance, models.PathWhiteBalanceTint},
		included: func(s Selection) bool { return s.WhiteBalance },
		get: func(d *Document) []json.RawMessage {
			if d.WhiteBalance == nil || single(d.WhiteBalance.Value) == nil || single(d.WhiteBalance.Tint) == nil {
				return nil
			}
			return []json.RawMessage{d.WhiteBalance.Value, d.WhiteBalance.Tint}
		},
		set: func(d *Document, v []json.RawMessage) error {
			d.WhiteBalance = &WhiteBalance{Value: v[0], Tint: v[1]}
			return nil
		},
	},
	simple("ndFilter", models.PathNDFilter,
		func(s Selection) bool { return s.NDFilter },
		func(d *Document) *json.RawMessage { return &d.NDFilter }),
	colorCorrection("lift", models.PathLift,
		func(s Selection) bool { return s.ColorCorrection.Lift },
		func(c *ColorCorrection) *json.RawMessage { return &c.Lift }),
	colorCorrection("gamma", models.PathGamma,
		func(s Selection) bool { return s.ColorCorrection.Gamma },
		func(c *ColorCorrection) *json.RawMessage { return &c.Gamma }),
	colorCorrection("gain", models.PathCCGain,
		func(s Selection) bool { return s.ColorCorrection.Gain },
		func(c *ColorCorrection) *json.RawMessage { return &c.Gain }),
	colorCorrection("offset", models.PathOffset,
		func(s Selection) bool { return s.ColorCorrection.Offset },
		func(c *ColorCorrection) *json.RawMessage { return &c.Offset }),
	simple("contrast", models.PathContrast,
		func(s Selection) bool { return s.Contrast },
		func(d *Document) *json.RawMessage { return &d.Contrast }),
	{
		name:     "color",
		paths:    []string{models.PathColor, models.PathLumaContribution},
		included: func(s Selection) bool { return s.Color },
		get: func(d *Document) []json.RawMessage {
			if d.Color == nil {
				return nil
			}
			color, _ := json.Marshal(models.Color{Hue: d.Color.Hue, Saturation: d.Color.Saturation})
			luma, _ := json.Marshal(models.LumaContribution{LumaContribution: d.Color.LumaContribution})
			return []json.RawMessage{color, luma}
		},
		set: func(d *Document, v []json.RawMessage) error {
			var color models.Color
			var luma models.LumaContribution
			if err := json.Unmarshal(v[0], &color); err != nil {
				return fmt.Errorf("color: %w", err)
			}
			if err := json.Unmarshal(v[1], &luma); err != nil {
				return fmt.Errorf("lumaContribution: %w", err)
			}
			d.Color = &Color{Hue: color.Hue, Saturation: color.Saturation, LumaContribution: luma.LumaContribution}
			return nil
		},
	},
	simple("autoExposure", models.PathAutoExposure,
		func(s Selection) bool { return s.AutoExposure },
		func(d *Document) *json.RawMessage { return &d.AutoExposure }),
}

// AllKeys lists every document key in apply order
func AllKeys() []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.name
	}
	return keys
}
