package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sydlexius/svgscout/internal/scanner"
)

type scanRequest struct {
	Path  string `json:"path"`
	Async bool   `json:"async"`
}

// scanResponse is a finished scan's result with the id of the job that
// produced it.
type scanResponse struct {
	JobID string `json:"jobId"`
	*scanner.Result
}

// scanDetail is a job snapshot plus its result once the job completed.
type scanDetail struct {
	scanner.Job
	Result *scanner.Result `json:"result,omitempty"`
}

// handleScan scans a directory, either before responding or in the
// background when async is set.
// POST /api/scan
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	if r.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not configured")
		return
	}

	var body scanRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if body.Async {
		job, err := r.jobs.Start(r.baseCtx, body.Path)
		if err != nil {
			r.writeScanError(w, body.Path, err)
			return
		}
		writeData(w, http.StatusAccepted, job)
		return
	}

	job, res, err := r.jobs.Run(req.Context(), body.Path)
	if err != nil {
		r.writeScanError(w, body.Path, err)
		return
	}
	writeData(w, http.StatusOK, scanResponse{JobID: job.ID, Result: res})
}

func (r *Router) writeScanError(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, scanner.ErrInvalidPath),
		errors.Is(err, scanner.ErrNotFound),
		errors.Is(err, scanner.ErrNotADirectory):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		r.logger.Error("scan failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleScanProgress returns the progress of the given or latest scan.
// Before any scan it returns an idle, zero snapshot.
// GET /api/scan-progress
func (r *Router) handleScanProgress(w http.ResponseWriter, req *http.Request) {
	if id := req.URL.Query().Get("job"); id != "" {
		job, ok := r.lookupJob(id)
		if !ok {
			writeError(w, http.StatusNotFound, "scan job not found")
			return
		}
		writeData(w, http.StatusOK, job.Progress)
		return
	}

	if r.jobs != nil {
		if job, ok := r.jobs.Latest(); ok {
			writeData(w, http.StatusOK, job.Progress)
			return
		}
	}
	writeData(w, http.StatusOK, scanner.ProgressSnapshot{})
}

// handleGetScan returns one scan job, with its full result once it has
// completed.
// GET /api/scans/{id}
func (r *Router) handleGetScan(w http.ResponseWriter, req *http.Request) {
	job, ok := r.lookupJob(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "scan job not found")
		return
	}
	detail := scanDetail{Job: job}
	if res, ok := r.jobs.Result(job.ID); ok {
		detail.Result = res
	}
	writeData(w, http.StatusOK, detail)
}

func (r *Router) lookupJob(id string) (scanner.Job, bool) {
	if r.jobs == nil || id == "" {
		return scanner.Job{}, false
	}
	return r.jobs.Job(id)
}
