package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/model"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

// Backend is every backend call the web front end makes.
// *effortapi.Client satisfies it.
type Backend interface {
	categorytree.Source
	pagination.Fetcher
	qa.Asker

	AddEstimation(ctx context.Context, e model.NewEstimation) (string, error)
	SyncTicket(ctx context.Context, ticket string, p model.CategoryPath) (model.SyncResult, error)
	SyncEpic(ctx context.Context, epic string) (model.EpicSyncResult, error)
	AutoClassify(ctx context.Context) (model.AutoClassifyResult, error)
	WeeklyPositiveRatio(ctx context.Context) ([]model.WeeklyRatio, error)
}

type ServerConfig struct {
	Addr     string
	PageSize int
	// SessionSecret signs the browser cookie. A random key is used when empty,
	// which invalidates cookies on restart.
	SessionSecret string
	SessionTTL    time.Duration
	// BackendURL is shown in the page footer.
	BackendURL string

	Backend Backend
	Logger  *zap.Logger
}

type Server struct {
	mu   sync.RWMutex
	cfg  ServerConfig
	tmpl *template.Template

	cookies *sessions.CookieStore
	views   *viewStore
	log     *zap.Logger
}

func (s *Server) cfgSnapshot() ServerConfig {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	return cfg
}

func (s *Server) backend() Backend {
	s.mu.RLock()
	b := s.cfg.Backend
	s.mu.RUnlock()
	return b
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.BackendURL = strings.TrimSpace(cfg.BackendURL)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Backend == nil {
		return nil, errors.New("web: backend is nil")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = pagination.DefaultPageSize
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	tmpl, err := template.New("base").Funcs(templateFuncs).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, errors.New("web: could not generate session key")
		}
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.MaxAge(int((30 * 24 * time.Hour).Seconds()))
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode
	// viewer marks the cookie Secure on TLS requests only.
	cookies.Options.Secure = false

	return &Server{
		cfg:     cfg,
		tmpl:    tmpl,
		cookies: cookies,
		views:   newViewStore(cfg.SessionTTL),
		log:     cfg.Logger,
	}, nil
}

func (s *Server) Addr() string { return s.cfgSnapshot().Addr }

func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/health", s.handleHealth)
	r.Get("/static/app.css", s.handleAppCSS)
	r.Get("/static/app.js", s.handleAppJS)
	r.Get("/", s.handleHome)

	r.Route("/ui", func(r chi.Router) {
		r.Get("/categories", s.handleTreeLoad)
		r.Post("/categories/toggle", s.handleTreeToggle)
		r.Post("/categories/edit", s.handleTreeEdit)
		r.Get("/categories/export", s.handleTreeExport)
		r.Post("/categories/import", s.handleTreeImport)
		r.Get("/pickers/{form}/{level}", s.handlePicker)

		r.Get("/list", s.handleListLoad)
		r.Post("/list/search", s.handleListSearch)
		r.Post("/list/clear", s.handleListClear)
		r.Post("/list/page", s.handleListPage)
		r.Post("/list/{dir:prev|next}", s.handleListStep)

		r.Post("/records/add", s.handleRecordAdd)
		r.Post("/records/category", s.handleRecordCategory)
		r.Post("/records/delete", s.handleRecordDelete)

		r.Post("/sync/ticket", s.handleSyncTicket)
		r.Post("/sync/epic", s.handleSyncEpic)
		r.Post("/sync/classify", s.handleSyncClassify)

		r.Get("/stats", s.handleStats)

		r.Post("/ask", s.handleAsk)
		r.Post("/ask/accept", s.handleAskAccept)
		r.Post("/ask/reject", s.handleAskReject)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// Serve listens on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		s.views.sweepLoop(egctx, s.log)
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Debug("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, name, contentType string) {
	b, err := assetsFS.ReadFile(name)
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "static/app.css", "text/css; charset=utf-8")
}

func (s *Server) handleAppJS(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "static/app.js", "text/javascript; charset=utf-8")
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}
