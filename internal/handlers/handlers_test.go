package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thumbsweep/internal/database"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/startup"
	"thumbsweep/internal/thumbnail"
)

type mockRunner struct {
	requests []runner.Request
	progress *thumbnail.TaskProgress
	running  bool
	stopped  bool
}

func (m *mockRunner) Enqueue(req runner.Request) bool {
	if m.stopped {
		return false
	}
	m.requests = append(m.requests, req)
	return true
}

func (m *mockRunner) Progress() (thumbnail.TaskProgress, bool) {
	if m.progress == nil {
		return thumbnail.TaskProgress{}, false
	}
	return *m.progress, true
}

func (m *mockRunner) IsRunning() bool { return m.running }
func (m *mockRunner) Pending() int    { return len(m.requests) }

type mockStore struct {
	tasks     []thumbnail.Task
	options   []thumbnail.Option
	lastSweep time.Time
	err       error
}

func (m *mockStore) ListTasks(context.Context) ([]thumbnail.Task, error) {
	return m.tasks, m.err
}

func (m *mockStore) GetTasks(_ context.Context, ids []string) ([]thumbnail.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []thumbnail.Task
	for _, id := range ids {
		found := false
		for _, t := range m.tasks {
			if t.ID == id {
				out = append(out, t)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", database.ErrTaskNotFound, id)
		}
	}
	return out, nil
}

func (m *mockStore) SearchAll(context.Context, thumbnail.OptionCriteria) ([]thumbnail.Option, error) {
	return m.options, m.err
}

func (m *mockStore) GetLastSweep(context.Context) (time.Time, error) {
	return m.lastSweep, m.err
}

func (m *mockStore) GetStats() metrics.Stats {
	return metrics.Stats{Tasks: len(m.tasks), Options: len(m.options)}
}

func newTestHandlers() (*Handlers, *mockRunner, *mockStore) {
	r := &mockRunner{}
	s := &mockStore{
		tasks: []thumbnail.Task{
			{ID: "photos", Name: "Photos", WorkPath: "photos", OptionIDs: []string{"sm"}},
			{ID: "logos", Name: "Logos", WorkPath: "brand", OptionIDs: []string{"sm"}},
		},
		options: []thumbnail.Option{
			{ID: "sm", Name: "Small", Suffix: "sm", Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(160)},
		},
	}
	return New(r, s), r, s
}

func TestHealthCheck(t *testing.T) {
	h, r, s := newTestHandlers()
	r.running = true
	s.lastSweep = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", resp.Status, statusHealthy)
	}
	if !resp.Running || resp.Tasks != 2 || resp.Options != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.LastSweep != "2024-05-01T06:00:00Z" {
		t.Errorf("LastSweep = %q", resp.LastSweep)
	}
	if resp.Version != startup.Version {
		t.Errorf("Version = %q, want %q", resp.Version, startup.Version)
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	h, _, s := newTestHandlers()
	s.err = errors.New("database is locked")

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), statusDegraded) {
		t.Errorf("body = %s, want degraded status", w.Body.String())
	}
}

func TestLivenessCheck(t *testing.T) {
	h, _, _ := newTestHandlers()

	w := httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("GET = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("HEAD = %d with %d body bytes, want 200 and none", w.Code, w.Body.Len())
	}
}

func TestGetProgress(t *testing.T) {
	h, r, _ := newTestHandlers()

	w := httptest.NewRecorder()
	h.GetProgress(w, httptest.NewRequest(http.MethodGet, "/api/progress", http.NoBody))
	var resp ProgressResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Progress != nil {
		t.Errorf("Progress = %+v before any run, want nil", resp.Progress)
	}

	r.running = true
	r.progress = &thumbnail.TaskProgress{RunID: "run-1", TotalCount: 10, ProcessedCount: 4, Errors: []string{"a.jpg: boom"}}

	w = httptest.NewRecorder()
	h.GetProgress(w, httptest.NewRequest(http.MethodGet, "/api/progress", http.NoBody))
	resp = ProgressResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Running || resp.Progress == nil || resp.Progress.ProcessedCount != 4 || len(resp.Progress.Errors) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestListTasksAndOptions(t *testing.T) {
	h, _, _ := newTestHandlers()

	w := httptest.NewRecorder()
	h.ListTasks(w, httptest.NewRequest(http.MethodGet, "/api/tasks", http.NoBody))
	var tasks []thumbnail.Task
	if err := json.NewDecoder(w.Body).Decode(&tasks); err != nil {
		t.Fatalf("failed to decode tasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].WorkPath != "photos" {
		t.Errorf("tasks = %+v", tasks)
	}

	w = httptest.NewRecorder()
	h.ListOptions(w, httptest.NewRequest(http.MethodGet, "/api/options", http.NoBody))
	var options []thumbnail.Option
	if err := json.NewDecoder(w.Body).Decode(&options); err != nil {
		t.Fatalf("failed to decode options: %v", err)
	}
	if len(options) != 1 || options[0].Width == nil || *options[0].Width != 160 {
		t.Errorf("options = %+v", options)
	}
}

func TestListTasksError(t *testing.T) {
	h, _, s := newTestHandlers()
	s.err = errors.New("disk I/O error")

	w := httptest.NewRecorder()
	h.ListTasks(w, httptest.NewRequest(http.MethodGet, "/api/tasks", http.NoBody))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantIDs    []string
		wantRegen  bool
	}{
		{name: "empty body runs everything", body: "", wantStatus: http.StatusAccepted},
		{name: "empty list runs everything", body: `{"taskIds":[],"regenerate":false}`, wantStatus: http.StatusAccepted},
		{name: "selected tasks", body: `{"taskIds":["logos"," photos "],"regenerate":true}`, wantStatus: http.StatusAccepted, wantIDs: []string{"logos", "photos"}, wantRegen: true},
		{name: "unknown task", body: `{"taskIds":["nope"]}`, wantStatus: http.StatusNotFound},
		{name: "malformed json", body: `{"taskIds":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"tasks":["photos"]}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, r, _ := newTestHandlers()

			w := httptest.NewRecorder()
			h.TriggerRun(w, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				if len(r.requests) != 0 {
					t.Errorf("rejected request was queued: %+v", r.requests)
				}
				return
			}

			if len(r.requests) != 1 {
				t.Fatalf("queued %d requests, want 1", len(r.requests))
			}
			got := r.requests[0]
			if strings.Join(got.TaskIDs, ",") != strings.Join(tt.wantIDs, ",") || got.Regenerate != tt.wantRegen {
				t.Errorf("queued %+v, want ids %v regenerate %v", got, tt.wantIDs, tt.wantRegen)
			}
			if got.Trigger != runner.TriggerManual {
				t.Errorf("Trigger = %q, want %q", got.Trigger, runner.TriggerManual)
			}
		})
	}
}

func TestTriggerRunWhileStopping(t *testing.T) {
	h, r, _ := newTestHandlers()
	r.stopped = true

	w := httptest.NewRecorder()
	h.TriggerRun(w, httptest.NewRequest(http.MethodPost, "/api/run", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestTriggerRunStoreError(t *testing.T) {
	h, _, s := newTestHandlers()
	s.err = errors.New("database is locked")

	w := httptest.NewRecorder()
	h.TriggerRun(w, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"taskIds":["photos"]}`)))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetVersion(t *testing.T) {
	h, _, _ := newTestHandlers()

	w := httptest.NewRecorder()
	h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))

	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.Version != startup.Version || info.GoVersion == "" {
		t.Errorf("build info = %+v", info)
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", w.Header().Get("Cache-Control"))
	}
}

func TestMetricsHandler(t *testing.T) {
	h, _, _ := newTestHandlers()
	metrics.RunInProgress.Set(0)

	w := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "thumbsweep_run_in_progress") {
		t.Error("metrics output is missing thumbsweep_run_in_progress")
	}
}
