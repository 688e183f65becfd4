package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sydlexius/svgscout/internal/logging"
)

// handleGetLogging returns the active logging configuration.
// GET /api/logging
func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}
	writeData(w, http.StatusOK, r.logManager.Config())
}

// handleUpdateLogging changes logging at runtime. Fields left empty keep
// their current value.
// PUT /api/logging
func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}

	var cfg logging.Config

	ct := req.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := req.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		cfg.Level = req.FormValue("level")
		cfg.Format = req.FormValue("format")
		cfg.FilePath = req.FormValue("file_path")
		if v := req.FormValue("file_max_size_mb"); v != "" {
			cfg.FileMaxSizeMB, _ = strconv.Atoi(v)
		}
		if v := req.FormValue("file_max_files"); v != "" {
			cfg.FileMaxFiles, _ = strconv.Atoi(v)
		}
		if v := req.FormValue("file_max_age_days"); v != "" {
			cfg.FileMaxAgeDays, _ = strconv.Atoi(v)
		}
	}

	if cfg.Level != "" && !logging.ValidLevel(cfg.Level) {
		writeError(w, http.StatusBadRequest, "invalid level; must be debug, info, warn, or error")
		return
	}
	if cfg.Format != "" && !logging.ValidFormat(cfg.Format) {
		writeError(w, http.StatusBadRequest, "invalid format; must be text or json")
		return
	}

	current := r.logManager.Config()
	if cfg.Level == "" {
		cfg.Level = current.Level
	}
	if cfg.Format == "" {
		cfg.Format = current.Format
	}
	if cfg.FilePath == "" {
		cfg.FilePath = current.FilePath
	}
	if cfg.FileMaxSizeMB == 0 {
		cfg.FileMaxSizeMB = current.FileMaxSizeMB
	}
	if cfg.FileMaxFiles == 0 {
		cfg.FileMaxFiles = current.FileMaxFiles
	}
	if cfg.FileMaxAgeDays == 0 {
		cfg.FileMaxAgeDays = current.FileMaxAgeDays
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured", "config", cfg.String())

	writeData(w, http.StatusOK, r.logManager.Config())
}
