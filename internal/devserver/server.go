// Package devserver is an in-memory Mailgram backend: the socket relay,
// server-rendered admin tables, the admin JSON API and uploads. It backs
// the "mailgram devserver" command and the integration tests.
package devserver

import (
	"context"
	"embed"
	"io/fs"
	"net"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/mailgram/internal/api"
	"github.com/pelusa-v/mailgram/internal/chat"
)

//go:embed views/*.html
var viewsFS embed.FS

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithMaxUpload caps accepted upload sizes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

type Server struct {
	app    *fiber.App
	hub    *Hub
	store  *Store
	groups *Groups

	clock     clock.Clock
	logger    zerolog.Logger
	maxUpload int64
}

func New(store *Store, groups *Groups, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("devserver: store must not be nil")
	}
	if groups == nil {
		return nil, errors.New("devserver: groups must not be nil")
	}
	s := &Server{
		store:     store,
		groups:    groups,
		clock:     clock.New(),
		logger:    zerolog.Nop(),
		maxUpload: chat.DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(store, groups, WithHubClock(s.clock), WithHubLogger(s.logger))

	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, errors.Wrap(err, "devserver: views")
	}
	s.app = fiber.New(fiber.Config{
		Views:                 html.NewFileSystem(http.FS(views), ".html"),
		BodyLimit:             int(s.maxUpload) + 1<<20,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use("/socket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/socket/:user_id", websocket.New(s.socket))

	s.app.Get("/api/clients", s.listClients) // ?exclude=id
	s.app.Post("/api/groups", s.createGroup) // ?user_id=&group_id=&name=
	s.app.Post("/api/groups/:group_id/join", s.joinGroup)
	s.app.Post("/api/groups/:group_id/leave", s.leaveGroup)
	s.app.Post("/report_user/:user_id", s.reportUser)

	s.app.Post(api.UploadPath, s.upload)
	s.app.Get("/uploads/:id", s.serveUpload)

	s.app.Get("/admin", s.dashboard)
	for _, kind := range []string{"users", "chats", "groups", "reports"} {
		s.app.Get("/admin/"+kind, s.adminTable(kind))
	}
	s.app.Get(api.StatsPath, s.stats)
	s.app.Post(api.BulkActionPath, s.bulkAction)
	s.app.Get("/admin/toggle_user/:id", s.toggleUser)
	s.app.Get("/admin/delete_user/:id", s.deleteUser)
	s.app.Get("/admin/handle_report/:id/:action", s.handleReport)
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "devserver: listen %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error().Err(err).Msg("shutting down")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("devserver listening")
	if err := s.app.Listener(ln); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "devserver: serve")
	}
	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
