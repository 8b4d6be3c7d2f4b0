// Package web serves the composition form and the JSON API behind it.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/pug/v2"

	"github.com/shineum/mailform/internal/attachment"
	"github.com/shineum/mailform/internal/compose"
	"github.com/shineum/mailform/internal/draft"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// bodyLimit fits a full batch of attachments plus multipart overhead.
const bodyLimit = attachment.MaxFiles*attachment.MaxFileSize + 1<<20

const defaultImportMaxSize = 5 * 1024 * 1024

//go:embed views
var viewsFS embed.FS

//go:embed static
var staticFS embed.FS

// requestLogFormat keeps access logs in the same JSON shape as slog.
const requestLogFormat = `{"time":"${time}","level":"INFO","msg":"request","status":${status},"method":"${method}","path":"${path}","latency":"${latency}","ip":"${ip}"}` + "\n"

// Config holds the web-facing settings.
type Config struct {
	// CookieName is the name of the cookie carrying the draft ID.
	CookieName string

	// DraftTTL sets the cookie lifetime; zero makes it a session cookie.
	DraftTTL time.Duration

	// SecureCookie marks the draft cookie Secure; set when serving TLS.
	SecureCookie bool

	// Username and Password enable HTTP basic auth when both are set.
	Username string
	Password string

	// ImportMaxSize caps spreadsheet uploads in bytes.
	ImportMaxSize int64
}

// Server is the HTTP front end of the form.
type Server struct {
	app      *fiber.App
	cfg      Config
	store    draft.Store
	composer *compose.Composer
	auth     *Authenticator
	locks    *keyedMutex
}

// New creates a Server and registers its routes.
func New(cfg Config, store draft.Store, composer *compose.Composer) (*Server, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "mailform_draft"
	}
	if cfg.ImportMaxSize <= 0 {
		cfg.ImportMaxSize = defaultImportMaxSize
	}

	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("loading views: %w", err)
	}
	engine := pug.NewFileSystem(http.FS(views), ".pug")

	app := fiber.New(fiber.Config{
		AppName:               "mailform",
		Views:                 engine,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		// Cookie and body values outlive the request as draft keys and
		// recipients.
		Immutable: true,
	})

	s := &Server{
		app:      app,
		cfg:      cfg,
		store:    store,
		composer: composer,
		auth:     NewAuthenticator(cfg.Username, cfg.Password),
		locks:    newKeyedMutex(),
	}
	s.routes()
	return s, nil
}

// App exposes the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format:     requestLogFormat,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	}))
	if s.auth.Enabled() {
		s.app.Use(s.auth.Middleware())
	}

	s.app.Get("/healthz", s.health)
	s.app.Use("/static", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		MaxAge:     3600,
	}))

	s.app.Get("/", s.session, s.index)

	api := s.app.Group("/api", s.session)
	api.Get("/draft", s.getDraft)
	api.Post("/recipients", s.addRecipient)
	api.Post("/recipients/import", s.importRecipients)
	api.Delete("/recipients", s.clearRecipients)
	api.Delete("/recipients/:email", s.removeRecipient)
	api.Post("/attachments", s.addAttachments)
	api.Delete("/attachments/:name", s.removeAttachment)
	api.Post("/submit", s.submit)
}

// ListenAndServe serves on addr until ctx is cancelled, then stops
// accepting connections and waits up to 30 seconds for in-flight requests.
// A non-nil tlsConfig serves HTTPS.
func (s *Server) ListenAndServe(ctx context.Context, addr string, tlsConfig *tls.Config) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	slog.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"provider", s.composer.ProviderName(),
		"auth_enabled", s.auth.Enabled(),
		"tls_enabled", tlsConfig != nil,
	)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutting down HTTP server")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Warn("shutdown timeout reached, forcing close", "error", err)
			return
		}
		slog.Info("all requests completed")
	}()

	err = s.app.Listener(ln)
	if ctx.Err() != nil {
		<-stopped
		return nil
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
