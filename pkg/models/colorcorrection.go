package models

// ColorWheel is shared by /colorCorrection/{lift,gamma,gain,offset}
type ColorWheel struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Luma  float64 `json:"luma"`
}

type Contrast struct {
	Pivot  float64 `json:"pivot"`
	Adjust float64 `json:"adjust"`
}

// Color is the body of /colorCorrection/color
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
}

type LumaContribution struct {
	LumaContribution float64 `json:"lumaContribution"`
}
