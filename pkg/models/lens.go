package models

// Focus is the body of GET/PUT /lens/focus
type Focus struct {
	Normalised float64 `json:"normalised"`
}

// AutoFocus is the body of /lens/autoFocus. A PUT with a position triggers an
// autofocus pass around that point of the frame.
type AutoFocus struct {
	Position *Point `json:"position,omitempty"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Iris is the body of /lens/iris
type Iris struct {
	ContinuousApertureAutoExposure bool    `json:"continuousApertureAutoExposure"`
	ApertureStop                   float64 `json:"apertureStop"`
	Normalised                     float64 `json:"normalised"`
	ApertureNumber                 int     `json:"apertureNumber"`
}

// Zoom is the body of /lens/zoom
type Zoom struct {
	FocalLength int     `json:"focalLength"` // millimetres
	Normalised  float64 `json:"normalised"`
}
