package router

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/thumbnail"
)

func newTestStore(t *testing.T) *blobstore.Local {
	t.Helper()
	store, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	return store
}

func putBlob(t *testing.T, store *blobstore.Local, url string, data []byte) {
	t.Helper()
	w, err := store.OpenWrite(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenWrite(%s) error: %v", url, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write(%s) error: %v", url, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close(%s) error: %v", url, err)
	}
}

func getBlob(t *testing.T, store *blobstore.Local, url string) []byte {
	t.Helper()
	r, err := store.OpenRead(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenRead(%s) error: %v", url, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%s) error: %v", url, err)
	}
	return data
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

func TestRasterHandlerGeneratesEveryOption(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "gallery/photo.png", pngBytes(t, 200, 100))

	options := []thumbnail.Option{
		{ID: "sm", Suffix: "sm", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(100)},
		{ID: "sq", Suffix: "sq", Method: thumbnail.MethodCrop, Width: thumbnail.IntPtr(40), Height: thumbnail.IntPtr(40), Anchor: thumbnail.AnchorCenter},
		{ID: "box", Suffix: "box", Method: thumbnail.MethodFixedSize, Width: thumbnail.IntPtr(60), Height: thumbnail.IntPtr(60)},
	}

	res := NewRasterHandler(store).GenerateThumbnails(context.Background(), "gallery/photo.png", options)
	if len(res.Errors) != 0 {
		t.Fatalf("Errors = %v", res.Errors)
	}

	want := []string{"gallery/photo_sm.png", "gallery/photo_sq.png", "gallery/photo_box.png"}
	if strings.Join(res.GeneratedURLs, ",") != strings.Join(want, ",") {
		t.Errorf("GeneratedURLs = %v, want %v (option order)", res.GeneratedURLs, want)
	}

	sizes := map[string][2]int{
		"gallery/photo_sm.png":  {100, 50},
		"gallery/photo_sq.png":  {40, 40},
		"gallery/photo_box.png": {60, 60},
	}
	for url, size := range sizes {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(getBlob(t, store, url)))
		if err != nil {
			t.Fatalf("DecodeConfig(%s) error: %v", url, err)
		}
		if format != "png" || cfg.Width != size[0] || cfg.Height != size[1] {
			t.Errorf("%s = %s %dx%d, want png %dx%d", url, format, cfg.Width, cfg.Height, size[0], size[1])
		}
	}
}

func TestRasterHandlerPerOptionFailureContinues(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "p.png", pngBytes(t, 20, 20))

	bad := "nope"
	options := []thumbnail.Option{
		{Suffix: "bad", Method: thumbnail.MethodFixedSize, Width: thumbnail.IntPtr(10), Height: thumbnail.IntPtr(10), BackgroundColor: &bad},
		{Suffix: "ok", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(10)},
	}

	res := NewRasterHandler(store).GenerateThumbnails(context.Background(), "p.png", options)
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "p_bad.png") {
		t.Errorf("Errors = %v, want one error for p_bad.png", res.Errors)
	}
	if len(res.GeneratedURLs) != 1 || res.GeneratedURLs[0] != "p_ok.png" {
		t.Errorf("GeneratedURLs = %v, want [p_ok.png]", res.GeneratedURLs)
	}
}

func TestRasterHandlerUnsupportedMethodStopsItem(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "p.png", pngBytes(t, 20, 20))

	options := []thumbnail.Option{
		{Suffix: "warp", Method: "Warp", Width: thumbnail.IntPtr(10), Height: thumbnail.IntPtr(10)},
		{Suffix: "ok", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(10)},
	}

	res := NewRasterHandler(store).GenerateThumbnails(context.Background(), "p.png", options)
	if len(res.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one", res.Errors)
	}
	if len(res.GeneratedURLs) != 0 {
		t.Errorf("GeneratedURLs = %v, want none after unsupported method", res.GeneratedURLs)
	}
}

func TestRasterHandlerUnreadableSource(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "broken.jpg", []byte("definitely not a jpeg"))

	opts := []thumbnail.Option{{Suffix: "sm", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(10)}}

	res := NewRasterHandler(store).GenerateThumbnails(context.Background(), "broken.jpg", opts)
	if len(res.Errors) != 1 || len(res.GeneratedURLs) != 0 {
		t.Errorf("result = %+v, want one error and nothing generated", res)
	}

	res = NewRasterHandler(store).GenerateThumbnails(context.Background(), "missing.jpg", opts)
	if len(res.Errors) != 1 {
		t.Errorf("missing source errors = %v, want one", res.Errors)
	}
}

func TestSVGHandlerRewritesAttributes(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "icons/logo.svg", []byte(`<svg width="200" height="100" viewBox="0 0 200 100"><circle r="5"/></svg>`))

	options := []thumbnail.Option{
		{Suffix: "w100", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(100)},
		{Suffix: "crop", Method: thumbnail.MethodCrop, Width: thumbnail.IntPtr(50), Height: thumbnail.IntPtr(50), Anchor: thumbnail.AnchorTopLeft},
	}

	res := NewSVGHandler(store).GenerateThumbnails(context.Background(), "icons/logo.svg", options)
	if len(res.Errors) != 0 {
		t.Fatalf("Errors = %v", res.Errors)
	}

	w100 := string(getBlob(t, store, "icons/logo_w100.svg"))
	if !strings.Contains(w100, `width="100"`) || !strings.Contains(w100, `height="50"`) || !strings.Contains(w100, `viewBox="0 0 200 100"`) {
		t.Errorf("logo_w100.svg = %s", w100)
	}
	crop := string(getBlob(t, store, "icons/logo_crop.svg"))
	if !strings.Contains(crop, `viewBox="0 0 50 50"`) {
		t.Errorf("logo_crop.svg = %s", crop)
	}
}

func TestSVGHandlerCopiesMalformedThrough(t *testing.T) {
	store := newTestStore(t)
	broken := []byte(`<svg width="10" <<<`)
	putBlob(t, store, "bad.svg", broken)

	res := NewSVGHandler(store).GenerateThumbnails(context.Background(), "bad.svg",
		[]thumbnail.Option{{Suffix: "sm", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(5)}})

	if len(res.Errors) != 0 {
		t.Errorf("malformed SVG should be a soft warning, got errors %v", res.Errors)
	}
	if got := getBlob(t, store, "bad_sm.svg"); !bytes.Equal(got, broken) {
		t.Errorf("derivative = %q, want original bytes", got)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "bad_sm.svg")); err != nil {
		t.Errorf("derivative not written: %v", err)
	}
}

func TestHandlersStopOnCancelledContext(t *testing.T) {
	store := newTestStore(t)
	putBlob(t, store, "p.png", pngBytes(t, 8, 8))
	putBlob(t, store, "v.svg", []byte(`<svg viewBox="0 0 8 8"/>`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := []thumbnail.Option{{Suffix: "sm", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(4)}}

	for _, h := range []Handler{NewRasterHandler(store), NewSVGHandler(store)} {
		url := "p.png"
		if h.Name() == "svg" {
			url = "v.svg"
		}
		res := h.GenerateThumbnails(ctx, url, opts)
		if len(res.GeneratedURLs) != 0 || len(res.Errors) == 0 {
			t.Errorf("%s with cancelled context = %+v, want an error and nothing generated", h.Name(), res)
		}
	}
}
