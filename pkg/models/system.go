package models

// System is the body of the connectivity probe GET /control/api/v1/system
type System struct {
	CodecFormat *CodecFormat `json:"codecFormat,omitempty"`
	VideoFormat *VideoFormat `json:"videoFormat,omitempty"`
}

type CodecFormat struct {
	Codec     string `json:"codec"`
	Container string `json:"container"`
}

type VideoFormat struct {
	Name       string `json:"name"`
	FrameRate  string `json:"frameRate"`
	Height     int    `json:"height"`
	Width      int    `json:"width"`
	Interlaced bool   `json:"interlaced"`
}
