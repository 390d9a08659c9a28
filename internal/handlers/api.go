package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"thumbsweep/internal/database"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/thumbnail"
)

const maxRunBodyBytes = 64 << 10

// ProgressResponse reports the runner state and the latest run's progress.
type ProgressResponse struct {
	Running  bool                    `json:"running"`
	Pending  int                     `json:"pending"`
	Progress *thumbnail.TaskProgress `json:"progress,omitempty"`
}

// GetProgress returns the progress of the current or most recent run.
func (h *Handlers) GetProgress(w http.ResponseWriter, _ *http.Request) {
	response := ProgressResponse{
		Running: h.runner.IsRunning(),
		Pending: h.runner.Pending(),
	}
	if p, ok := h.runner.Progress(); ok {
		response.Progress = &p
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

// ListTasks returns every configured task.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		logging.Error("Failed to list tasks: %v", err)
		writeJSONError(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tasks)
}

// ListOptions returns every configured thumbnail option.
func (h *Handlers) ListOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.store.SearchAll(r.Context(), thumbnail.OptionCriteria{})
	if err != nil {
		logging.Error("Failed to list options: %v", err)
		writeJSONError(w, "failed to list options", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, options)
}

// TriggerRun queues a generation run. The body is optional; an empty body or
// an empty taskIds list runs every task.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runner.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRunBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ids := req.TaskIDs[:0]
	for _, id := range req.TaskIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	req.TaskIDs = ids
	req.Trigger = runner.TriggerManual

	if len(req.TaskIDs) > 0 {
		if _, err := h.store.GetTasks(r.Context(), req.TaskIDs); err != nil {
			if errors.Is(err, database.ErrTaskNotFound) {
				writeJSONError(w, err.Error(), http.StatusNotFound)
				return
			}
			logging.Error("Failed to resolve tasks %v: %v", req.TaskIDs, err)
			writeJSONError(w, "failed to resolve tasks", http.StatusInternalServerError)
			return
		}
	}

	if !h.runner.Enqueue(req) {
		writeJSONError(w, "runner is shutting down", http.StatusServiceUnavailable)
		return
	}

	logging.Info("Run queued via API (tasks: %s, regenerate: %v)", describeTasks(req.TaskIDs), req.Regenerate)
	writeJSONStatus(w, "queued", http.StatusAccepted)
}

func describeTasks(ids []string) string {
	if len(ids) == 0 {
		return "all"
	}
	return strings.Join(ids, ", ")
}
