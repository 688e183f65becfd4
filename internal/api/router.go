package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spf13/afero"

	"github.com/sydlexius/svgscout/internal/api/middleware"
	"github.com/sydlexius/svgscout/internal/catalog"
	"github.com/sydlexius/svgscout/internal/logging"
	"github.com/sydlexius/svgscout/internal/scanner"
	"github.com/sydlexius/svgscout/web/templates"
)

// scanBurst is how many scans a single client may start back to back.
const scanBurst = 5

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Jobs       *scanner.Service
	Catalog    *catalog.Catalog
	LogManager *logging.Manager
	Logger     *slog.Logger
	BasePath   string

	// Fs is used to read single files. Defaults to the OS filesystem.
	Fs afero.Fs

	// ScanRatePerMinute limits POST /api/scan per client. Zero disables it.
	ScanRatePerMinute int

	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string

	// BaseContext outlives requests. Async scans and the rate limiter
	// cleanup run under it.
	BaseContext context.Context
}

// Router sets up all HTTP routes for the application.
type Router struct {
	jobs        *scanner.Service
	catalog     *catalog.Catalog
	logManager  *logging.Manager
	fs          afero.Fs
	logger      *slog.Logger
	basePath    string
	baseCtx     context.Context
	corsOrigins []string
	scanLimiter *middleware.RateLimiter
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	r := &Router{
		jobs:        deps.Jobs,
		catalog:     deps.Catalog,
		logManager:  deps.LogManager,
		fs:          deps.Fs,
		logger:      deps.Logger,
		basePath:    deps.BasePath,
		baseCtx:     deps.BaseContext,
		corsOrigins: deps.CORSOrigins,
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.baseCtx == nil {
		r.baseCtx = context.Background()
	}
	if deps.ScanRatePerMinute > 0 {
		r.scanLimiter = middleware.NewRateLimiter(r.baseCtx, deps.ScanRatePerMinute, scanBurst)
	}
	return r
}

// endpoints is the route table shown on the status page.
var endpoints = []templates.Endpoint{
	{Method: "POST", Path: "/api/scan", Description: "scan a directory ({path, async})"},
	{Method: "GET", Path: "/api/scan-progress", Description: "progress of the latest or ?job= scan"},
	{Method: "GET", Path: "/api/scans/{id}", Description: "one scan job"},
	{Method: "GET", Path: "/api/svg-files", Description: "paged images (?page, limit, search, job)"},
	{Method: "GET", Path: "/api/file/{path...}", Description: "file content, vectors converted to SVG"},
	{Method: "GET", Path: "/api/health", Description: "liveness"},
	{Method: "GET", Path: "/api/logging", Description: "current log settings"},
	{Method: "PUT", Path: "/api/logging", Description: "change log level or format"},
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	var scan http.Handler = http.HandlerFunc(r.handleScan)
	if r.scanLimiter != nil {
		scan = r.scanLimiter.Middleware(scan)
	}
	mux.Handle("POST "+bp+"/api/scan", scan)
	mux.HandleFunc("GET "+bp+"/api/scan-progress", r.handleScanProgress)
	mux.HandleFunc("GET "+bp+"/api/scans/{id}", r.handleGetScan)
	mux.HandleFunc("GET "+bp+"/api/svg-files", r.handleListFiles)
	mux.HandleFunc("GET "+bp+"/api/file/{path...}", r.handleGetFile)
	mux.HandleFunc("GET "+bp+"/api/file", r.handleGetFile)
	mux.HandleFunc("GET "+bp+"/api/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/logging", r.handleGetLogging)
	mux.HandleFunc("PUT "+bp+"/api/logging", r.handleUpdateLogging)
	mux.HandleFunc("GET "+bp+"/{$}", r.handleIndex)

	return middleware.Logging(r.logger)(
		middleware.SecurityHeaders(
			middleware.CORS(r.corsOrigins)(mux),
		),
	)
}
