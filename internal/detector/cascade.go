//go:build gocv

package detector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var log = logrus.WithField("component", "detector")

var (
	matchColor = color.RGBA{R: 255}
	stampColor = color.RGBA{R: 255, G: 255, B: 255}
)

// Cascade reports presence when a Haar cascade finds at least one match in the
// latest frame of a capture device.
type Cascade struct {
	mu           sync.Mutex
	capture      *gocv.VideoCapture
	classifier   gocv.CascadeClassifier
	frame        gocv.Mat
	minNeighbors int
	writer       *gocv.VideoWriter
	height       int
}

// NewCascade opens the device and loads the classifier.
func NewCascade(cfg CascadeConfig) (*Cascade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", ErrUnavailable, cfg.Device, err)
	}
	if cfg.Resolution > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Resolution*4/3))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Resolution))
	}
	if cfg.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}
	if cfg.Brightness > 0 {
		capture.Set(gocv.VideoCaptureBrightness, float64(cfg.Brightness))
	}
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))
	fps := capture.Get(gocv.VideoCaptureFPS)
	log.Debugf("capture %d: %dx%d at %.0f fps, brightness %.0f%%", cfg.Device, width, height, fps,
		capture.Get(gocv.VideoCaptureBrightness))

	var writer *gocv.VideoWriter
	if cfg.RecordPath != "" {
		if fps <= 0 {
			fps = 30
		}
		writer, err = gocv.VideoWriterFile(cfg.RecordPath, RecordCodec, fps, width, height, true)
		if err != nil {
			capture.Close()
			return nil, fmt.Errorf("%w: open recording %s: %v", ErrUnavailable, cfg.RecordPath, err)
		}
		log.Infof("recording detections to %s", cfg.RecordPath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		if writer != nil {
			writer.Close()
		}
		capture.Close()
		return nil, fmt.Errorf("%w: load cascade %s", ErrUnavailable, cfg.CascadePath)
	}
	minNeighbors := cfg.MinNeighbors
	if minNeighbors <= 0 {
		minNeighbors = 3
	}
	return &Cascade{
		capture:      capture,
		classifier:   classifier,
		frame:        gocv.NewMat(),
		minNeighbors: minNeighbors,
		writer:       writer,
		height:       height,
	}, nil
}

func (c *Cascade) Present(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return false, fmt.Errorf("%w: no frame from device", ErrUnavailable)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(c.frame, &gray, gocv.ColorBGRToGray)

	rects := c.classifier.DetectMultiScaleWithParams(gray, 1.1, c.minNeighbors, 0, image.Point{}, image.Point{})
	if len(rects) > 0 {
		log.Debugf("detected %d match(es), first at %v", len(rects), rects[0])
	}
	if c.writer != nil {
		c.record(rects)
	}
	return len(rects) > 0, nil
}

// record boxes each match, stamps the time and appends the frame to the recording.
func (c *Cascade) record(rects []image.Rectangle) {
	for _, r := range rects {
		gocv.Rectangle(&c.frame, r, matchColor, 2)
	}
	origin := image.Pt(10, c.height-5)
	gocv.PutText(&c.frame, time.Now().Format("2006-01-02 15:04:05.000"), origin, gocv.FontHersheyPlain, 1, stampColor, 1)
	if err := c.writer.Write(c.frame); err != nil {
		log.Warnf("write recording frame: %v", err)
	}
}

func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer != nil {
		c.writer.Close()
	}
	c.frame.Close()
	c.classifier.Close()
	return c.capture.Close()
}
