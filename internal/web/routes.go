package web

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/school-reports/internal/web/handlers"
	"github.com/kozaktomas/school-reports/internal/web/middleware"
	"github.com/kozaktomas/school-reports/internal/web/static"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	authHandler := handlers.NewAuthHandler(sessionManager)
	reportsHandler := handlers.NewReportsHandler(s.deps.Pipeline, s.deps.Renderer, s.deps.Exporter)
	templatesHandler := handlers.NewTemplatesHandler()
	uploadHandler := handlers.NewUploadHandler(s.deps.Uploader)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Reports
			r.Get("/reports", reportsHandler.ListReports)
			r.Post("/reports", reportsHandler.CreateReport)
			r.Get("/reports/{id}", reportsHandler.GetReport)
			r.Put("/reports/{id}", reportsHandler.UpdateReport)
			r.Delete("/reports/{id}", reportsHandler.DeleteReport)
			r.Post("/reports/{id}/duplicate", reportsHandler.DuplicateReport)
			r.Get("/reports/{id}/preview", reportsHandler.PreviewReport)
			r.Get("/reports/{id}/export", reportsHandler.ExportReport)
			r.Get("/reports/{id}/export/status", reportsHandler.ExportStatus)

			// Templates
			r.Get("/templates", templatesHandler.ListTemplates)
			r.Get("/templates/active", templatesHandler.GetActiveTemplate)
			r.Post("/templates", templatesHandler.CreateTemplate)
			r.Put("/templates/{id}", templatesHandler.UpdateTemplate)
			r.Post("/templates/{id}/activate", templatesHandler.ActivateTemplate)

			r.Post("/uploads", uploadHandler.Upload)
		})
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the embedded front-end, falling back to index.html for
// client-side routes and to a placeholder page when no front-end is built.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		fs := static.GetFileSystem()
		p := r.URL.Path
		if p == "/" {
			p = "/index.html"
		}

		if f, err := fs.Open(p); err == nil {
			defer f.Close()
			if stat, err := f.Stat(); err == nil && !stat.IsDir() {
				contentType := mime.TypeByExtension(path.Ext(p))
				if contentType == "" {
					contentType = "application/octet-stream"
				}
				w.Header().Set("Content-Type", contentType)
				if strings.HasPrefix(p, "/assets/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}
				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}

		if !strings.HasPrefix(p, "/assets/") {
			if indexFile, err := fs.Open("/index.html"); err == nil {
				defer indexFile.Close()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				io.Copy(w, indexFile)
				return
			}
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>School Reports</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #F1F0FB; color: #1a1f2c; }
        .container { text-align: center; }
        p { color: #8E9196; }
        code { background: #fff; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>School Reports</h1>
        <p>No front-end is embedded in this build. The API is served under <code>/api/v1</code>.</p>
        <p>Health: <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
