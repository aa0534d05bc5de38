package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CREATURES_PORT", "9000")
	t.Setenv("CAMERA_DEVICE", "/dev/video2")
	t.Setenv("TEST_COUNT", "not-a-number")
	t.Setenv("TEST_FLAG", "true")
	t.Setenv("TEST_WAIT", "250ms")

	if got := Port(); got != 9000 {
		t.Errorf("Port() = %d, want 9000", got)
	}
	if got := CameraDevice(); got != "/dev/video2" {
		t.Errorf("CameraDevice() = %q", got)
	}
	if got := Int("TEST_COUNT", 3); got != 3 {
		t.Errorf("Int(TEST_COUNT) = %d, want fallback 3", got)
	}
	if got := Bool("TEST_FLAG", false); !got {
		t.Error("Bool(TEST_FLAG) = false")
	}
	if got := Duration("TEST_WAIT", time.Second); got != 250*time.Millisecond {
		t.Errorf("Duration(TEST_WAIT) = %v", got)
	}
	if got := Source(); got != DefaultSource {
		t.Errorf("Source() = %q, want %q", got, DefaultSource)
	}
}
