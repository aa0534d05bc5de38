// Package movenet runs MoveNet Lightning pose models through the
// OpenCV dnn module.
//
// Models are ONNX exports with an NCHW float32 input holding RGB values
// in [0,255]. The single-pose model outputs [1,1,17,3] rows of
// (y, x, score); the multi-pose model outputs [1,6,56] rows of 17
// keypoint triples followed by (ymin, xmin, ymax, xmax, score). All
// coordinates are normalized to the input image.
package movenet

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/teslashibe/go-creatures/internal/httpc"
	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/debug"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
	"gocv.io/x/gocv"
)

// Config holds backend configuration.
type Config struct {
	ModelDir    string // Where model files live
	BaseURL     string // Download location for missing models; empty disables downloads
	SingleModel string // File name of the single-pose model
	MultiModel  string // File name of the multi-pose model

	SingleInputSize int // Square input side for single-pose
	MultiInputSize  int // Square input side for multi-pose

	MinKeypointScore float64 // Keypoints below this are treated as not detected
	MinPoseScore     float64 // Multi-pose detections below this are dropped
	MaxPoses         int     // Multi-pose detection rows to read

	HTTPClient *http.Client // Used for downloads; nil uses a long-timeout client
}

// DefaultConfig returns production defaults for MoveNet Lightning.
func DefaultConfig() Config {
	return Config{
		ModelDir:         "models",
		SingleModel:      "movenet_singlepose_lightning.onnx",
		MultiModel:       "movenet_multipose_lightning.onnx",
		SingleInputSize:  192,
		MultiInputSize:   256,
		MinKeypointScore: 0.3,
		MinPoseScore:     0.25,
		MaxPoses:         6,
	}
}

// ModelFile returns the model file name for mode.
func (c Config) ModelFile(mode pose.Mode) string {
	if mode == pose.MultiPose {
		return c.MultiModel
	}
	return c.SingleModel
}

// InputSize returns the square input side for mode.
func (c Config) InputSize(mode pose.Mode) int {
	if mode == pose.MultiPose {
		return c.MultiInputSize
	}
	return c.SingleInputSize
}

// Backend builds MoveNet resources. It implements estimator.Backend.
type Backend struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a backend.
func New(cfg Config) *Backend {
	return &Backend{
		cfg:    cfg,
		logger: log.Component("movenet"),
	}
}

// Create loads the model for cfg.Mode, downloading it first if needed.
func (b *Backend) Create(ctx context.Context, cfg estimator.Config) (estimator.Resource, error) {
	path, err := b.EnsureModel(ctx, cfg.Mode)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load MoveNet model from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	size := b.cfg.InputSize(cfg.Mode)
	b.logger.Info("model loaded", "mode", cfg.Mode, "path", path, "input", size)

	return &Resource{
		net:       net,
		mode:      cfg.Mode,
		cfg:       b.cfg,
		inputSize: image.Pt(size, size),
	}, nil
}

// EnsureModel returns the local path of the model for mode, fetching
// it from BaseURL when it is missing.
func (b *Backend) EnsureModel(ctx context.Context, mode pose.Mode) (string, error) {
	name := b.cfg.ModelFile(mode)
	path := filepath.Join(b.cfg.ModelDir, name)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model %s: %w", path, err)
	}

	if b.cfg.BaseURL == "" {
		return "", fmt.Errorf("model file not found: %s", path)
	}

	url := strings.TrimRight(b.cfg.BaseURL, "/") + "/" + name
	b.logger.Info("downloading model", "url", url, "path", path)
	n, err := httpc.Download(ctx, b.cfg.HTTPClient, url, path)
	if err != nil {
		return "", err
	}
	b.logger.Info("model downloaded", "path", path, "bytes", n)
	return path, nil
}

// Resource is one loaded MoveNet network. It implements estimator.Resource.
type Resource struct {
	net       gocv.Net
	mode      pose.Mode
	cfg       Config
	inputSize image.Point

	mu     sync.Mutex
	closed bool
}

// Estimate runs the network on frame and returns poses in frame pixels.
func (r *Resource) Estimate(ctx context.Context, frame video.Frame) ([]pose.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, estimator.ErrClosed
	}

	img, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	w := float64(img.Cols())
	h := float64(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0, r.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	r.net.SetInput(blob, "")
	output := r.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	var poses []pose.Pose
	if r.mode == pose.MultiPose {
		poses = DecodeMulti(data, w, h, r.cfg.MinKeypointScore, r.cfg.MinPoseScore, r.cfg.MaxPoses)
	} else {
		poses = DecodeSingle(data, w, h, r.cfg.MinKeypointScore)
	}

	if len(poses) > 0 {
		debug.FrameLog("🕺 MoveNet found %d pose(s)\n", len(poses))
	}
	return poses, nil
}

// Dispose releases the network.
func (r *Resource) Dispose(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.net.Close()
}
