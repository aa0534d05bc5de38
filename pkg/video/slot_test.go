package video

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// encodeJPEG returns a w x h JPEG filled with c.
func encodeJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSlot_LatestFrameWins(t *testing.T) {
	s := NewSlot()

	if _, ok := s.Latest(); ok {
		t.Fatal("empty slot returned a frame")
	}

	s.Publish([]byte("a"), 640, 480)
	s.Publish([]byte("b"), 640, 480)
	f := s.Publish([]byte("c"), 320, 240)
	if f.Seq != 3 {
		t.Errorf("Seq = %d, want 3", f.Seq)
	}

	got, ok := s.Latest()
	if !ok || string(got.JPEG) != "c" || got.Dims().Width != 320 {
		t.Errorf("Latest() = %+v, %v; want frame c", got, ok)
	}

	st := s.Stats()
	if st.Published != 3 || st.TotalDrops != 2 {
		t.Errorf("Stats() = %+v, want 3 published, 2 drops", st)
	}

	// A consumed frame that is replaced is not a drop.
	s.Publish([]byte("d"), 320, 240)
	if st := s.Stats(); st.TotalDrops != 2 {
		t.Errorf("TotalDrops after consumed replace = %d, want 2", st.TotalDrops)
	}
}

func TestJPEGDims(t *testing.T) {
	w, h, err := JPEGDims(encodeJPEG(t, 64, 48, color.White))
	if err != nil || w != 64 || h != 48 {
		t.Errorf("JPEGDims = %d, %d, %v; want 64, 48", w, h, err)
	}
	if _, _, err := JPEGDims([]byte("nope")); err == nil {
		t.Error("JPEGDims accepted garbage")
	}
}
