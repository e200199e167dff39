package models

import (
	"encoding/json"
	"fmt"
)

// Known endpoint paths, relative to /control/api/v1
const (
	PathSystem           = "/system"
	PathFocus            = "/lens/focus"
	PathAutoFocus        = "/lens/autoFocus"
	PathIris             = "/lens/iris"
	PathZoom             = "/lens/zoom"
	PathISO              = "/video/iso"
	PathGain             = "/video/gain"
	PathShutter          = "/video/shutter"
	PathWhiteBalance     = "/video/whiteBalance"
	PathWhiteBalanceTint = "/video/whiteBalanceTint"
	PathNDFilter         = "/video/ndFilter"
	PathAutoExposure     = "/video/autoExposure"
	PathLift             = "/colorCorrection/lift"
	PathGamma            = "/colorCorrection/gamma"
	PathCCGain           = "/colorCorrection/gain"
	PathOffset           = "/colorCorrection/offset"
	PathContrast         = "/colorCorrection/contrast"
	PathColor            = "/colorCorrection/color"
	PathLumaContribution = "/colorCorrection/lumaContribution"
)

// Opaque holds the body of an endpoint with no known schema
type Opaque struct {
	Path string
	Raw  json.RawMessage
}

func newRecord(path string) any {
	switch path {
	case PathSystem:
		return &System{}
	case PathFocus:
		return &Focus{}
	case PathAutoFocus:
		return &AutoFocus{}
	case PathIris:
		return &Iris{}
	case PathZoom:
		return &Zoom{}
	case PathISO:
		return &ISO{}
	case PathGain:
		return &Gain{}
	case PathShutter:
		return &Shutter{}
	case PathWhiteBalance:
		return &WhiteBalance{}
	case PathWhiteBalanceTint:
		return &WhiteBalanceTint{}
	case PathNDFilter:
		return &NDFilter{}
	case PathAutoExposure:
		return &AutoExposure{}
	case PathLift, PathGamma, PathCCGain, PathOffset:
		return &ColorWheel{}
	case PathContrast:
		return &Contrast{}
	case PathColor:
		return &Color{}
	case PathLumaContribution:
		return &LumaContribution{}
	}
	return nil
}

// Decode turns a raw endpoint body into the record type for that path.
// Unknown paths come back as *Opaque so manual requests still pass through.
func Decode(path string, raw json.RawMessage) (any, error) {
	rec := newRecord(path)
	if rec == nil {
		return &Opaque{Path: path, Raw: raw}, nil
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}
