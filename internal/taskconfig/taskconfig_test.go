package taskconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thumbsweep/internal/database"
	"thumbsweep/internal/thumbnail"
)

const sample = `
options:
  - id: small
    name: Small
    suffix: sm
    method: fixedwidth
    width: 150
  - id: square
    suffix: sq
    method: Crop
    width: 100
    height: 100
    anchor: top
    quality: 80
  - id: box
    suffix: box
    method: FixedSize
    width: 64
    height: 64
    background_color: "#ffffff"

tasks:
  - id: photos
    name: Photos
    work_path: /media/photos/
    options: [square, small]
  - id: everything
    work_path: ""
`

func TestParse(t *testing.T) {
	defs, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(defs.Options) != 3 || len(defs.Tasks) != 2 {
		t.Fatalf("Parse() = %d options %d tasks, want 3 and 2", len(defs.Options), len(defs.Tasks))
	}

	small := defs.Options[0]
	if small.Method != thumbnail.MethodFixedWidth || *small.Width != 150 || small.Height != nil {
		t.Errorf("small = %+v", small)
	}
	if small.Anchor != thumbnail.AnchorCenter {
		t.Errorf("default anchor = %s, want Center", small.Anchor)
	}

	square := defs.Options[1]
	if square.Anchor != thumbnail.AnchorTop || square.Quality != 80 {
		t.Errorf("square = %+v", square)
	}

	if bg := defs.Options[2].BackgroundColor; bg == nil || *bg != "#ffffff" {
		t.Errorf("box background = %v, want #ffffff", bg)
	}

	photos := defs.Tasks[0]
	if photos.WorkPath != "media/photos" {
		t.Errorf("WorkPath = %q, want media/photos", photos.WorkPath)
	}
	if strings.Join(photos.OptionIDs, ",") != "square,small" {
		t.Errorf("OptionIDs = %v, want [square small]", photos.OptionIDs)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "suffix with underscore",
			yaml: "options:\n  - {id: a, suffix: s_m, method: FixedWidth, width: 1}\n",
			want: "must not contain",
		},
		{
			name: "suffix with dot",
			yaml: "options:\n  - {id: a, suffix: s.m, method: FixedWidth, width: 1}\n",
			want: "must not contain",
		},
		{
			name: "duplicate suffix",
			yaml: "options:\n  - {id: a, suffix: sm, method: FixedWidth, width: 1}\n  - {id: b, suffix: sm, method: FixedWidth, width: 2}\n",
			want: "already used",
		},
		{
			name: "duplicate option id",
			yaml: "options:\n  - {id: a, suffix: x, method: FixedWidth, width: 1}\n  - {id: a, suffix: y, method: FixedWidth, width: 2}\n",
			want: "duplicate id",
		},
		{
			name: "unknown method",
			yaml: "options:\n  - {id: a, suffix: x, method: Stretch, width: 1}\n",
			want: "unknown resize method",
		},
		{
			name: "unknown anchor",
			yaml: "options:\n  - {id: a, suffix: x, method: Crop, width: 1, height: 1, anchor: Middle}\n",
			want: "unknown anchor",
		},
		{
			name: "crop without height",
			yaml: "options:\n  - {id: a, suffix: x, method: Crop, width: 1}\n",
			want: "needs width and height",
		},
		{
			name: "negative width",
			yaml: "options:\n  - {id: a, suffix: x, method: FixedWidth, width: -5}\n",
			want: "must be positive",
		},
		{
			name: "bad color",
			yaml: "options:\n  - {id: a, suffix: x, method: FixedSize, width: 1, height: 1, background_color: red}\n",
			want: "option a",
		},
		{
			name: "quality out of range",
			yaml: "options:\n  - {id: a, suffix: x, method: FixedWidth, width: 1, quality: 101}\n",
			want: "quality",
		},
		{
			name: "escaping work path",
			yaml: "tasks:\n  - {id: t, work_path: ../etc}\n",
			want: "escapes",
		},
		{
			name: "duplicate task",
			yaml: "tasks:\n  - {id: t, work_path: a}\n  - {id: t, work_path: b}\n",
			want: "duplicate id",
		},
		{
			name: "option listed twice",
			yaml: "tasks:\n  - {id: t, work_path: a, options: [x, x]}\n",
			want: "listed twice",
		},
		{
			name: "not yaml",
			yaml: "options: [",
			want: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() succeeded, want an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte("options:\n  - {id: a, suffix: '', method: FixedWidth, width: 1}\n  - {id: b, suffix: y, method: Nope}\n"))
	if err == nil {
		t.Fatal("Parse() succeeded, want an error")
	}
	if !strings.Contains(err.Error(), "options[0]") || !strings.Contains(err.Error(), "options[1]") {
		t.Errorf("error = %v, want both options reported", err)
	}
}

func TestLoadAndSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	defs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("database.New() error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Sync(ctx, db, defs); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	at := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	if err := db.UpdateLastRun(ctx, "photos", at); err != nil {
		t.Fatalf("UpdateLastRun() error: %v", err)
	}

	// A second sync keeps the stamp
	if err := Sync(ctx, db, defs); err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}

	task, err := db.GetTask(ctx, "photos")
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if task.LastRun == nil || !task.LastRun.Equal(at) {
		t.Errorf("LastRun = %v, want %v", task.LastRun, at)
	}
	if strings.Join(task.OptionIDs, ",") != "square,small" {
		t.Errorf("OptionIDs = %v", task.OptionIDs)
	}

	opts, err := db.SearchAll(ctx, thumbnail.OptionCriteria{})
	if err != nil || len(opts) != 3 {
		t.Errorf("SearchAll() = %d options, %v; want 3", len(opts), err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
