//go:build !gocv

package detector

import "context"

// Cascade is unavailable without the gocv build tag.
type Cascade struct{}

// NewCascade always fails; rebuild with -tags gocv and OpenCV installed.
func NewCascade(CascadeConfig) (*Cascade, error) { return nil, ErrUnavailable }

func (c *Cascade) Present(context.Context) (bool, error) { return false, ErrUnavailable }

func (c *Cascade) Close() error { return nil }
