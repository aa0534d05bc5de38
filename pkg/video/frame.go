// Package video provides camera frame sources for the overlay: a
// latest-frame mailbox, a WebRTC remote camera client and a websocket
// ingest endpoint.
package video

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/teslashibe/go-creatures/pkg/pose"
)

// Frame is one JPEG-encoded camera image with its native size.
type Frame struct {
	Seq      uint64    // Delivery sequence, starting at 1
	JPEG     []byte    // Encoded image
	Width    int       // Native width in pixels
	Height   int       // Native height in pixels
	Captured time.Time // When the frame was delivered
}

// Dims returns the native frame size.
func (f Frame) Dims() pose.Dims {
	return pose.Dims{Width: f.Width, Height: f.Height}
}

// Source hands out the most recent frame. ok is false until a frame
// has been delivered.
type Source interface {
	Latest() (Frame, bool)
}

// JPEGDims reads the image size from a JPEG header without decoding pixels.
func JPEGDims(data []byte) (width, height int, err error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("read jpeg header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
