package detector

import "fmt"

// Resolutions are the supported capture heights; width follows at 4:3.
var Resolutions = []int{144, 240, 360, 480, 720, 1080}

// RecordCodec is the FourCC used for the annotated recording.
const RecordCodec = "mp4v"

// CascadeConfig configures the camera detector. Zero FPS, Brightness and
// Resolution keep the device defaults. A non-empty RecordPath writes every
// sampled frame, with matches boxed and a timestamp overlay, to that file.
type CascadeConfig struct {
	Device       int
	CascadePath  string
	Resolution   int
	MinNeighbors int
	FPS          float64
	Brightness   int // percent
	RecordPath   string
}

// Validate checks the classifier path and the capture settings.
func (c CascadeConfig) Validate() error {
	if c.CascadePath == "" {
		return fmt.Errorf("%w: cascade path is required", ErrUnavailable)
	}
	if c.FPS < 0 {
		return fmt.Errorf("invalid fps %v", c.FPS)
	}
	if c.Brightness < 0 || c.Brightness > 100 {
		return fmt.Errorf("invalid brightness %d%%, want [0, 100]", c.Brightness)
	}
	if c.Resolution == 0 {
		return nil
	}
	for _, r := range Resolutions {
		if r == c.Resolution {
			return nil
		}
	}
	return fmt.Errorf("invalid resolution %d, want one of %v", c.Resolution, Resolutions)
}
