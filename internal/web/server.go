package web

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/notice"
	"github.com/vbonduro/weightlog/internal/service"
)

type Server struct {
	entries     *service.EntryService
	banner      *notice.Banner
	templates   fs.FS
	router      chi.Router
	tmplFuncs   template.FuncMap
	displayUnit domain.WeightUnit
	now         func() time.Time
	logger      *slog.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithDisplayUnit sets the unit weights are additionally shown in and new
// forms start with.
func WithDisplayUnit(u domain.WeightUnit) Option {
	return func(s *Server) {
		if u.Valid() {
			s.displayUnit = u
		}
	}
}

// WithClock replaces time.Now, which decides "today" and future dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(svc *service.EntryService, banner *notice.Banner, tmpl fs.FS, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		entries:     svc,
		banner:      banner,
		templates:   tmpl,
		displayUnit: domain.Kilograms,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tmplFuncs = template.FuncMap{
		"day":      func(t time.Time) string { return t.In(s.entries.Location()).Format(time.DateOnly) },
		"longDate": func(t time.Time) string { return t.In(s.entries.Location()).Format("Monday, January 2, 2006") },
		"weight":   domain.FormatWeight,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
	})
	r.Get("/calendar", s.handleCalendar)
	r.Post("/banner/dismiss", s.handleDismissBanner)

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", s.handleListEntries)
		r.Post("/", s.handleCreateEntry)
		r.Get("/new", s.handleNewEntry)
		r.Post("/check", s.handleCheckField)
		r.Get("/{id}/edit", s.handleEditEntry)
		r.Post("/{id}", s.handleUpdateEntry)
		r.Post("/{id}/delete", s.handleDeleteEntry)
		r.Delete("/{id}", s.handleDeleteEntry)
		r.Get("/{id}/photo", s.handleGetPhoto)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(withNoCache)
		r.Get("/health", s.handleAPIHealth)
		r.Get("/entries", s.handleAPIListEntries)
		r.Delete("/entries", s.handleAPIRemoveBetween)
		r.Get("/entries/day/{date}", s.handleAPIEntriesOnDay)
		r.Delete("/entries/at/{index}", s.handleAPIRemoveAt)
		r.Get("/calendar/{month}", s.handleAPICalendar)
	})

	s.router = r
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses base.html, the banner partial and files, then executes
// "base" with data. The current banner message is added to data.
func (s *Server) renderPage(w http.ResponseWriter, status int, data map[string]any, files ...string) error {
	if msg, ok := s.banner.Current(); ok {
		data["Banner"] = msg
	}
	data["BannerTimeoutMS"] = s.banner.Timeout().Milliseconds()

	files = append([]string{"base.html", "partials/banner.html"}, files...)
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
