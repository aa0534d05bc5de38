package video

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"
)

// DecoderConfig controls H264 to JPEG decoding.
type DecoderConfig struct {
	MinInterval time.Duration // Minimum time between decodes
	Timeout     time.Duration // Per-decode ffmpeg deadline
	Quality     int           // ffmpeg -q:v, 1-31, lower is better
}

// DefaultDecoderConfig returns a 20 FPS decoder.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		MinInterval: 50 * time.Millisecond,
		Timeout:     250 * time.Millisecond,
		Quality:     3,
	}
}

// Decoder turns buffered H264 access units into JPEG frames with a
// short-lived ffmpeg process per decode, using pipes instead of temp
// files.
type Decoder struct {
	cfg DecoderConfig

	mu         sync.Mutex
	lastDecode time.Time
}

// NewDecoder creates a decoder.
func NewDecoder(cfg DecoderConfig) *Decoder {
	return &Decoder{cfg: cfg}
}

// Due reports whether enough time has passed since the last decode.
func (d *Decoder) Due() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Since(d.lastDecode) >= d.cfg.MinInterval
}

// Decode returns the newest frame in an Annex-B H264 stream, which must
// start at a keyframe with its parameter sets. It returns nil, nil when
// ffmpeg could not produce a usable frame yet.
func (d *Decoder) Decode(ctx context.Context, h264 []byte) ([]byte, error) {
	if len(h264) < 100 {
		return nil, nil
	}

	d.mu.Lock()
	d.lastDecode = time.Now()
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", fmt.Sprint(d.cfg.Quality),
		"pipe:1",
	)

	var stdout bytes.Buffer
	cmd.Stdin = bytes.NewReader(h264)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		// ffmpeg exits non-zero when the data holds no complete frame
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("run ffmpeg: %w", err)
	}

	frame := lastJPEG(stdout.Bytes())
	if frame == nil || isGrayJPEG(frame) {
		return nil, nil
	}
	return frame, nil
}

// lastJPEG returns the final image of a concatenated MJPEG stream.
// Entropy-coded data stuffs 0xFF bytes, so SOI markers only appear at
// image starts.
func lastJPEG(stream []byte) []byte {
	i := bytes.LastIndex(stream, []byte{0xFF, 0xD8})
	if i < 0 {
		return nil
	}
	frame := stream[i:]
	if !bytes.HasSuffix(frame, []byte{0xFF, 0xD9}) {
		return nil
	}
	return frame
}

// isGrayJPEG checks if a JPEG is likely a gray or black placeholder
// frame, which decoders emit before the first keyframe settles.
func isGrayJPEG(jpegData []byte) bool {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return true
	}

	bounds := img.Bounds()
	if bounds.Dx() < 100 || bounds.Dy() < 100 {
		return true
	}

	// Sample pixels to check variance
	var rSum, gSum, bSum int
	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += bounds.Dy() / 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += bounds.Dx() / 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			rSum += int(r >> 8)
			gSum += int(g >> 8)
			bSum += int(b >> 8)
			samples++
		}
	}

	avgR := rSum / samples
	avgG := gSum / samples
	avgB := bSum / samples

	// Black frames
	if avgR < 30 && avgG < 30 && avgB < 30 {
		return true
	}

	// Uniform mid gray (R = G = B)
	colorDiff := abs(avgR-avgG) + abs(avgG-avgB) + abs(avgR-avgB)
	if colorDiff < 15 && avgR > 100 && avgR < 150 {
		return true
	}

	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
