package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/davidbyttow/govips/v2/vips"
)

// govips cannot restart libvips after Shutdown, so this file never calls it.
// Tests that need the unavailable path skip once another test initialized it.

func TestVipsUnavailablePaths(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already initialized")
	}

	if _, err := DecodeWithVips([]byte{0}, MaxImageDimension, MaxImagePixels); !errors.Is(err, ErrVipsUnavailable) {
		t.Errorf("DecodeWithVips() error = %v, want ErrVipsUnavailable", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	if _, err := EncodeWebPWithVips(img, 80); !errors.Is(err, ErrVipsUnavailable) {
		t.Errorf("EncodeWebPWithVips() error = %v, want ErrVipsUnavailable", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, "photo_sm.webp", 80); !errors.Is(err, ErrUnsupportedOutput) {
		t.Errorf("Encode(.webp) error = %v, want ErrUnsupportedOutput", err)
	}
}

func TestInitVipsReportsStartupFailure(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already initialized")
	}
	prev := vipsStartup
	vipsStartup = func(*vips.Config) { panic("Failed to start vips code") }
	t.Cleanup(func() { vipsStartup = prev })

	err := InitVips(1)
	if !errors.Is(err, ErrVipsUnavailable) {
		t.Fatalf("InitVips() error = %v, want ErrVipsUnavailable", err)
	}
	if IsVipsAvailable() {
		t.Error("IsVipsAvailable() = true after failed startup")
	}
}

func TestInitVipsAfterShutdown(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already initialized")
	}
	vipsInitMutex.Lock()
	vipsShutDown = true
	vipsInitMutex.Unlock()
	t.Cleanup(func() {
		vipsInitMutex.Lock()
		vipsShutDown = false
		vipsInitMutex.Unlock()
	})

	if err := InitVips(1); !errors.Is(err, ErrVipsUnavailable) {
		t.Errorf("InitVips() after shutdown error = %v, want ErrVipsUnavailable", err)
	}
}

func TestWebPRoundTripWithVips(t *testing.T) {
	if err := InitVips(1); err != nil {
		t.Skipf("libvips not available: %v", err)
	}
	if err := InitVips(1); err != nil {
		t.Errorf("second InitVips() call failed: %v", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 6), uint8(y * 12), 90, 255})
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, "photo_sm.webp", 80); err != nil {
		t.Fatalf("Encode(.webp) error: %v", err)
	}

	src, err := DecodeConstrained(buf.Bytes(), "photo_sm.webp", MaxImageDimension, MaxImagePixels)
	if err != nil {
		t.Fatalf("DecodeConstrained(webp) error: %v", err)
	}
	if src.Width != 40 || src.Height != 20 {
		t.Errorf("decoded webp = %dx%d, want 40x20", src.Width, src.Height)
	}

	vsrc, err := DecodeWithVips(buf.Bytes(), 10, MaxImagePixels)
	if err != nil {
		t.Fatalf("DecodeWithVips() error: %v", err)
	}
	if vsrc.Width != 40 || vsrc.Image.Bounds().Dx() > 10 {
		t.Errorf("DecodeWithVips() = %dx%d (bounds %v), want original 40 wide constrained to 10", vsrc.Width, vsrc.Height, vsrc.Image.Bounds())
	}
}
