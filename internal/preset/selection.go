package preset

// Selection says which document keys capture and apply touch. It is loaded
// once at startup and never changed afterwards.
type Selection struct {
	Focus           bool                     `json:"focus"`
	AutoFocus       bool                     `json:"autoFocus"`
	Iris            bool                     `json:"iris"`
	Gain            bool                     `json:"gain"`
	Shutter         bool                     `json:"shutter"`
	WhiteBalance    bool                     `json:"whiteBalance"`
	NDFilter        bool                     `json:"ndFilter"`
	ColorCorrection ColorCorrectionSelection `json:"colorCorrection"`
	Contrast        bool                     `json:"contrast"`
	Color           bool                     `json:"color"`
	AutoExposure    bool                     `json:"autoExposure"`
}

type ColorCorrectionSelection struct {
	Lift   bool `json:"lift"`
	Gamma  bool `json:"gamma"`
	Gain   bool `json:"gain"`
	Offset bool `json:"offset"`
}

// DefaultSelection includes everything except autofocus, which is an action
// rather than a setting.
func DefaultSelection() Selection {
	return Selection{
		Focus:        true,
		Iris:         true,
		Gain:         true,
		Shutter:      true,
		WhiteBalance: true,
		NDFilter:     true,
		ColorCorrection: ColorCorrectionSelection{
			Lift: true, Gamma: true, Gain: true, Offset: true,
		},
		Contrast:     true,
		Color:        true,
		AutoExposure: true,
	}
}
