package taskconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/media"
	"thumbsweep/internal/thumbnail"
)

// File is the on-disk layout.
type File struct {
	Options []OptionConfig `yaml:"options"`
	Tasks   []TaskConfig   `yaml:"tasks"`
}

// OptionConfig is one derivative definition.
type OptionConfig struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Suffix          string `yaml:"suffix"`
	Method          string `yaml:"method"`
	Width           *int   `yaml:"width"`
	Height          *int   `yaml:"height"`
	BackgroundColor string `yaml:"background_color"`
	Anchor          string `yaml:"anchor"`
	Quality         int    `yaml:"quality"`
}

// TaskConfig is one storage subtree.
type TaskConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	WorkPath string   `yaml:"work_path"`
	Options  []string `yaml:"options"`
}

// Definitions is a validated file converted to domain types.
type Definitions struct {
	Options []thumbnail.Option
	Tasks   []thumbnail.Task
}

// Load reads, parses and validates a definitions file.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task definitions: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates definitions from YAML.
func Parse(data []byte) (*Definitions, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse task definitions: %w", err)
	}

	defs, err := f.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid task definitions: %w", err)
	}
	return defs, nil
}

// Validate checks the file and converts it. Every problem found is reported.
func (f *File) Validate() (*Definitions, error) {
	var errs []error
	defs := &Definitions{}

	ids := make(map[string]bool)
	suffixes := make(map[string]string)

	for i, oc := range f.Options {
		opt, err := oc.toOption()
		if err != nil {
			errs = append(errs, fmt.Errorf("options[%d]: %w", i, err))
			continue
		}
		if ids[opt.ID] {
			errs = append(errs, fmt.Errorf("options[%d]: duplicate id %q", i, opt.ID))
			continue
		}
		if other, ok := suffixes[opt.Suffix]; ok {
			errs = append(errs, fmt.Errorf("options[%d]: suffix %q already used by %q", i, opt.Suffix, other))
			continue
		}
		ids[opt.ID] = true
		suffixes[opt.Suffix] = opt.ID
		defs.Options = append(defs.Options, opt)
	}

	taskIDs := make(map[string]bool)
	for i, tc := range f.Tasks {
		task, err := tc.toTask()
		if err != nil {
			errs = append(errs, fmt.Errorf("tasks[%d]: %w", i, err))
			continue
		}
		if taskIDs[task.ID] {
			errs = append(errs, fmt.Errorf("tasks[%d]: duplicate id %q", i, task.ID))
			continue
		}
		taskIDs[task.ID] = true
		defs.Tasks = append(defs.Tasks, task)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

func (oc OptionConfig) toOption() (thumbnail.Option, error) {
	if oc.ID == "" {
		return thumbnail.Option{}, errors.New("id is required")
	}
	if err := ValidateSuffix(oc.Suffix); err != nil {
		return thumbnail.Option{}, fmt.Errorf("option %s: %w", oc.ID, err)
	}

	method, err := thumbnail.ParseMethod(oc.Method)
	if err != nil {
		return thumbnail.Option{}, fmt.Errorf("option %s: %w", oc.ID, err)
	}
	anchor, err := thumbnail.ParseAnchor(oc.Anchor)
	if err != nil {
		return thumbnail.Option{}, fmt.Errorf("option %s: %w", oc.ID, err)
	}

	for name, v := range map[string]*int{"width": oc.Width, "height": oc.Height} {
		if v != nil && *v <= 0 {
			return thumbnail.Option{}, fmt.Errorf("option %s: %s must be positive, got %d", oc.ID, name, *v)
		}
	}
	switch method {
	case thumbnail.MethodFixedSize, thumbnail.MethodCrop:
		if oc.Width == nil || oc.Height == nil {
			return thumbnail.Option{}, fmt.Errorf("option %s: %s needs width and height", oc.ID, method)
		}
	case thumbnail.MethodFixedWidth:
		if oc.Width == nil {
			return thumbnail.Option{}, fmt.Errorf("option %s: FixedWidth needs width", oc.ID)
		}
	case thumbnail.MethodFixedHeight:
		if oc.Height == nil {
			return thumbnail.Option{}, fmt.Errorf("option %s: FixedHeight needs height", oc.ID)
		}
	}

	if oc.Quality < 0 || oc.Quality > 100 {
		return thumbnail.Option{}, fmt.Errorf("option %s: quality must be between 1 and 100, got %d", oc.ID, oc.Quality)
	}

	opt := thumbnail.Option{
		ID:      oc.ID,
		Name:    oc.Name,
		Suffix:  oc.Suffix,
		Method:  method,
		Width:   oc.Width,
		Height:  oc.Height,
		Anchor:  anchor,
		Quality: oc.Quality,
	}
	if oc.BackgroundColor != "" {
		if _, err := media.ParseHexColor(oc.BackgroundColor); err != nil {
			return thumbnail.Option{}, fmt.Errorf("option %s: %w", oc.ID, err)
		}
		bg := oc.BackgroundColor
		opt.BackgroundColor = &bg
	}
	return opt, nil
}

func (tc TaskConfig) toTask() (thumbnail.Task, error) {
	if tc.ID == "" {
		return thumbnail.Task{}, errors.New("id is required")
	}
	workPath := strings.Trim(strings.ReplaceAll(tc.WorkPath, "\\", "/"), "/")
	for _, seg := range strings.Split(workPath, "/") {
		if seg == ".." {
			return thumbnail.Task{}, fmt.Errorf("task %s: work_path %q escapes the storage root", tc.ID, tc.WorkPath)
		}
	}

	seen := make(map[string]bool, len(tc.Options))
	for _, id := range tc.Options {
		if seen[id] {
			return thumbnail.Task{}, fmt.Errorf("task %s: option %q listed twice", tc.ID, id)
		}
		seen[id] = true
	}

	return thumbnail.Task{
		ID:        tc.ID,
		Name:      tc.Name,
		WorkPath:  workPath,
		OptionIDs: append([]string{}, tc.Options...),
	}, nil
}

// ValidateSuffix rejects suffixes that would make derivative names ambiguous.
func ValidateSuffix(s string) error {
	if s == "" {
		return errors.New("suffix is required")
	}
	if strings.ContainsAny(s, "_./\\ ") {
		return fmt.Errorf("suffix %q must not contain '_', '.', '/', '\\' or spaces", s)
	}
	return nil
}

// Store is where Sync writes definitions.
type Store interface {
	UpsertOption(ctx context.Context, opt thumbnail.Option) error
	UpsertTask(ctx context.Context, task thumbnail.Task) error
}

// Sync upserts every option and then every task. Stored LastRun values are
// kept. Options and tasks missing from the file are left alone.
func Sync(ctx context.Context, store Store, defs *Definitions) error {
	for _, opt := range defs.Options {
		if err := store.UpsertOption(ctx, opt); err != nil {
			return err
		}
	}
	for _, task := range defs.Tasks {
		if err := store.UpsertTask(ctx, task); err != nil {
			return err
		}
	}
	logging.Info("Synced %d thumbnail option(s) and %d task(s)", len(defs.Options), len(defs.Tasks))
	return nil
}
