package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/sydlexius/svgscout/internal/version"
	"github.com/sydlexius/svgscout/web/templates"
)

// statusJobs is how many recent jobs the status page lists.
const statusJobs = 10

// handleHealth reports liveness.
// GET /api/health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.Version,
		"commit":    version.Commit,
	})
}

// handleIndex renders the status page.
// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	data := templates.StatusData{
		Version:   version.String(),
		Endpoints: make([]templates.Endpoint, len(endpoints)),
	}
	for i, e := range endpoints {
		e.Path = r.basePath + e.Path
		data.Endpoints[i] = e
	}
	if r.jobs != nil {
		jobs := r.jobs.Jobs()
		if len(jobs) > statusJobs {
			jobs = jobs[:statusJobs]
		}
		data.Jobs = jobs
	}
	renderTempl(w, req, templates.StatusPage(data))
}

func renderTempl(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// envelope wraps successful data responses.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError sends a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
