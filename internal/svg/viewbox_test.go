package svg

import "testing"

func TestParseViewBox(t *testing.T) {
	tests := []struct {
		in   string
		want ViewBox
		ok   bool
	}{
		{in: "0 0 200 100", want: ViewBox{0, 0, 200, 100}, ok: true},
		{in: "-5,10,  20.5 30", want: ViewBox{-5, 10, 20.5, 30}, ok: true},
		{in: " 1\t2\n3 4 ", want: ViewBox{1, 2, 3, 4}, ok: true},
		{in: "0 0 0 10", ok: false},
		{in: "0 0 10", ok: false},
		{in: "a b c d", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseViewBox(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseViewBox(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseViewBox(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestViewBoxString(t *testing.T) {
	tests := []struct {
		vb   ViewBox
		want string
	}{
		{ViewBox{0, 0, 100, 100}, "0 0 100 100"},
		{ViewBox{16.5, 0.25, 67, 33}, "16.5 0.25 67 33"},
		{ViewBox{-10, -20, 1, 2}, "-10 -20 1 2"},
	}
	for _, tt := range tests {
		if got := tt.vb.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "200", want: 200, ok: true},
		{in: "200px", want: 200, ok: true},
		{in: " 12.5em", want: 13, ok: true},
		{in: "12.4", want: 12, ok: true},
		{in: "100%", want: 100, ok: true},
		{in: "1e2", want: 100, ok: true},
		{in: "2em", want: 2, ok: true},
		{in: ".6in", want: 1, ok: true},
		{in: "auto", ok: false},
		{in: "", ok: false},
		{in: "-5", ok: false},
		{in: "0", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDimension(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseDimension(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
