package movenet

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

func init() {
	log.SetOutput(io.Discard)
}

// triples builds 17 (y, x, score) triples with every score set to s,
// except the overrides.
func triples(s float32, overrides map[int][3]float32) []float32 {
	out := make([]float32, singleLen)
	for i := 0; i < numKeypoints; i++ {
		out[i*3] = 0.5
		out[i*3+1] = 0.25
		out[i*3+2] = s
		if o, ok := overrides[i]; ok {
			copy(out[i*3:], o[:])
		}
	}
	return out
}

func TestDecodeSingle(t *testing.T) {
	data := triples(0.9, map[int][3]float32{
		1: {0.1, 0.2, 0.8}, // left_eye
		2: {0.1, 0.3, 0.1}, // right_eye, below threshold
	})

	poses := DecodeSingle(data, 640, 480, 0.3)
	if len(poses) != 1 {
		t.Fatalf("poses = %d, want 1", len(poses))
	}
	p := poses[0]
	if p.Len() != numKeypoints-1 {
		t.Errorf("keypoints = %d, want %d", p.Len(), numKeypoints-1)
	}
	if _, ok := p.Find(pose.RightEye); ok {
		t.Error("low-score right_eye kept")
	}

	eye, ok := p.Find(pose.LeftEye)
	if !ok {
		t.Fatal("left_eye missing")
	}
	if math.Abs(eye.X-128) > 1e-3 || math.Abs(eye.Y-48) > 1e-3 {
		t.Errorf("left_eye = (%v,%v), want (128,48)", eye.X, eye.Y)
	}
	if math.Abs(eye.Confidence-0.8) > 1e-6 {
		t.Errorf("left_eye confidence = %v", eye.Confidence)
	}
}

func TestDecodeSingle_NothingDetected(t *testing.T) {
	if got := DecodeSingle(triples(0.05, nil), 640, 480, 0.3); got != nil {
		t.Errorf("DecodeSingle = %v, want nil", got)
	}
	if got := DecodeSingle(make([]float32, 10), 640, 480, 0.3); got != nil {
		t.Errorf("DecodeSingle(short) = %v, want nil", got)
	}
}

func TestDecodeMulti(t *testing.T) {
	row := func(score float32) []float32 {
		r := append(triples(0.9, nil), 0, 0, 1, 1, score)
		return r
	}

	var data []float32
	data = append(data, row(0.8)...)
	data = append(data, row(0.1)...) // dropped
	data = append(data, row(0.6)...)
	data = append(data, row(0.9)...) // beyond maxPoses

	tests := []struct {
		name     string
		maxPoses int
		want     []float64
	}{
		{"limited", 3, []float64{0.8, 0.6}},
		{"unlimited", 0, []float64{0.8, 0.6, 0.9}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			poses := DecodeMulti(data, 100, 100, 0.3, 0.25, tc.maxPoses)
			if len(poses) != len(tc.want) {
				t.Fatalf("poses = %d, want %d", len(poses), len(tc.want))
			}
			for i, p := range poses {
				if math.Abs(p.Score-tc.want[i]) > 1e-6 {
					t.Errorf("pose %d score = %v, want %v", i, p.Score, tc.want[i])
				}
				if p.Len() != numKeypoints {
					t.Errorf("pose %d keypoints = %d", i, p.Len())
				}
			}
		})
	}
}

func TestConfigPerMode(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputSize(pose.SinglePose) != 192 || cfg.InputSize(pose.MultiPose) != 256 {
		t.Errorf("input sizes = %d/%d", cfg.InputSize(pose.SinglePose), cfg.InputSize(pose.MultiPose))
	}
	if cfg.ModelFile(pose.MultiPose) != cfg.MultiModel {
		t.Errorf("ModelFile(multi) = %q", cfg.ModelFile(pose.MultiPose))
	}
}

func TestEnsureModel(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/movenet_singlepose_lightning.onnx" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("onnx"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ModelDir = t.TempDir()
	cfg.BaseURL = srv.URL + "/"
	cfg.HTTPClient = srv.Client()
	b := New(cfg)

	path, err := b.EnsureModel(context.Background(), pose.SinglePose)
	if err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "onnx" {
		t.Errorf("model contents = %q", got)
	}

	// A present file is not fetched again.
	if _, err := b.EnsureModel(context.Background(), pose.SinglePose); err != nil {
		t.Fatalf("second EnsureModel: %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}

	if _, err := b.EnsureModel(context.Background(), pose.MultiPose); err == nil {
		t.Error("EnsureModel(multi) succeeded against a 404")
	}
}

func TestCreate_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelDir = filepath.Join(t.TempDir(), "none")
	b := New(cfg)

	if _, err := b.Create(context.Background(), estimator.Config{Mode: pose.SinglePose}); err == nil {
		t.Error("Create succeeded without a model")
	}
}
