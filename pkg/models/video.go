package models

type ISO struct {
	ISO int `json:"iso"`
}

// Gain is the body of /video/gain, in decibels
type Gain struct {
	Gain int `json:"gain"`
}

// Shutter is the body of /video/shutter. Cameras report either a speed or an
// angle depending on the shutter measurement setting; the other field is omitted.
type Shutter struct {
	ContinuousShutterAutoExposure bool `json:"continuousShutterAutoExposure"`
	ShutterSpeed                  *int `json:"shutterSpeed,omitempty"` // 1/x seconds
	ShutterAngle                  *int `json:"shutterAngle,omitempty"` // degrees * 100
}

type WhiteBalance struct {
	WhiteBalance int `json:"whiteBalance"` // kelvin
}

type WhiteBalanceTint struct {
	WhiteBalanceTint int `json:"whiteBalanceTint"`
}

type NDFilter struct {
	Stop float64 `json:"stop"`
}

// AutoExposure is the body of /video/autoExposure
type AutoExposure struct {
	Mode string `json:"mode"` // "Off", "Continuous", "OneShot"
	Type string `json:"type"` // "", "Iris", "Shutter", "Iris,Shutter", ...
}
