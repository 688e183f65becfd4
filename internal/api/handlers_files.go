package api

import (
	"net/http"
	"strings"

	"github.com/spf13/afero"

	"github.com/sydlexius/svgscout/internal/catalog"
	"github.com/sydlexius/svgscout/internal/classify"
	"github.com/sydlexius/svgscout/internal/convert"
)

type fileResponse struct {
	Content      string        `json:"content"`
	OriginalType classify.Kind `json:"originalType"`
}

// handleListFiles returns one page of images from the given or latest
// completed scan.
// GET /api/svg-files
func (r *Router) handleListFiles(w http.ResponseWriter, req *http.Request) {
	q := catalog.Query{
		Page:   intQuery(req, "page", 1),
		Limit:  intQuery(req, "limit", catalog.DefaultLimit),
		Search: req.URL.Query().Get("search"),
	}

	jobID := req.URL.Query().Get("job")
	if jobID != "" {
		if _, ok := r.lookupJob(jobID); !ok {
			writeError(w, http.StatusNotFound, "scan job not found")
			return
		}
	} else if r.jobs != nil {
		if job, ok := r.jobs.LatestCompleted(); ok {
			jobID = job.ID
		}
	}
	if jobID == "" || r.catalog == nil {
		writeData(w, http.StatusOK, catalog.EmptyPage(q))
		return
	}

	page, err := r.catalog.Query(req.Context(), jobID, q)
	if err != nil {
		r.logger.Error("querying catalog", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeData(w, http.StatusOK, page)
}

// handleGetFile returns a file's content as a bare {content, originalType}
// object. Android vector drawables are converted to SVG first.
// GET /api/file/{path...}
// GET /api/file?path=
func (r *Router) handleGetFile(w http.ResponseWriter, req *http.Request) {
	path := req.PathValue("path")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "" {
		path = req.URL.Query().Get("path")
	}
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		r.logger.Debug("reading file", "path", path, "error", err)
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	content := string(data)
	if classify.IsAndroidVector(content) {
		writeJSON(w, http.StatusOK, fileResponse{
			Content:      convert.VectorToSVG(content),
			OriginalType: classify.KindAndroidVector,
		})
		return
	}
	writeJSON(w, http.StatusOK, fileResponse{Content: content, OriginalType: classify.KindSVG})
}
