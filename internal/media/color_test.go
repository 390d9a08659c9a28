package media

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#ffffff", want: color.NRGBA{255, 255, 255, 255}},
		{in: "#000", want: color.NRGBA{0, 0, 0, 255}},
		{in: "f00", want: color.NRGBA{255, 0, 0, 255}},
		{in: "#11223344", want: color.NRGBA{0x11, 0x22, 0x33, 0x44}},
		{in: "#abc8", want: color.NRGBA{0xaa, 0xbb, 0xcc, 0x88}},
		{in: " #0A0B0C ", want: color.NRGBA{10, 11, 12, 255}},
		{in: "#12345", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHexColor(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBackgroundForDefaultsToTransparent(t *testing.T) {
	got, err := backgroundFor(nil)
	if err != nil || got != (color.NRGBA{}) {
		t.Errorf("backgroundFor(nil) = %v, %v; want transparent", got, err)
	}

	empty := ""
	got, err = backgroundFor(&empty)
	if err != nil || got.A != 0 {
		t.Errorf("backgroundFor(\"\") = %v, %v; want transparent", got, err)
	}
}
