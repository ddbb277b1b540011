package roomchat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/putto11262002/roomchat/pkg/router"
)

type App struct {
	config  *Config
	context context.Context
	server  *http.Server
	logger  *slog.Logger
	router  *router.Router
	storage kv.Store

	exit chan int

	sessions *Sessions
	auth     *Authenticator

	sessionHandler *SessionHandler
	stubHandler    *StubHandler
	viewStream     *ViewStream

	cleanupFuncs []func(context.Context)

	wg sync.WaitGroup
}

// New builds the app from config. A nil ctx is cancelled on the usual
// termination signals; a nil config is loaded from the environment.
func New(ctx context.Context, config *Config) (*App, error) {
	app := &App{
		exit: make(chan int),
	}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context = ctx

	if config == nil {
		var err error
		config, err = LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("LoadConfig: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%s", FormatValidationErrors(err))
	}
	app.config = config

	app.logger = NewLogger(os.Stdout, config.LogLevel())

	storage, err := kv.Open(ctx, config.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.storage = storage

	app.sessions = NewSessions(core.Options{
		Storage:     app.storage,
		Scheduler:   core.RealScheduler{},
		Rand:        core.DefaultRand,
		DisableBots: !config.Bot.Enabled,
	}, app.logger)
	stopSweeper := app.sessions.StartSweeper(config.Session.Sweep, config.Session.Idle)
	// sessions go first so their last writes reach the storage
	app.AddCleanupFunc(func(ctx context.Context) {
		stopSweeper()
		app.sessions.CloseAll()
		if err := app.storage.Close(); err != nil {
			app.logger.Error(fmt.Sprintf("closing storage: %v", err))
		}
	})

	app.auth = NewAuthenticator(config.Auth.Secret, config.Auth.TTL, app.sessions)
	app.sessionHandler = NewSessionHandler(app.auth, app.sessions)
	app.stubHandler = NewStubHandler(time.Now, core.DefaultRand)
	app.viewStream = NewViewStream(app.context, &app.wg, app.logger, app.sessions, app.checkOrigin)

	app.router = router.New(router.WithLogger(app.logger))
	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	api := router.New(router.WithLogger(app.logger))
	registerErrorMappers(api)
	sessionMiddleware := SessionMiddleware(app.auth)

	api.Route("/messages", func(r *router.Router) {
		r.Get("/", app.stubHandler.ListMessagesHandler)
		r.Post("/", app.stubHandler.PostMessageHandler)
		r.Delete("/", app.stubHandler.DeleteMessageHandler)
	})

	api.Route("/rooms", func(r *router.Router) {
		r.Get("/", app.stubHandler.ListRoomsHandler)
		r.Post("/", app.stubHandler.CreateRoomHandler)
		r.Put("/", app.stubHandler.UpdateRoomHandler)
		r.Delete("/", app.stubHandler.DeleteRoomHandler)
	})

	api.Route("/session", func(r *router.Router) {
		r.Post("/login", app.sessionHandler.LoginHandler)
		r.Group(func(r *router.Router) {
			r.Use(sessionMiddleware)
			r.Post("/logout", app.sessionHandler.LogoutHandler)
			r.Delete("/", app.sessionHandler.EndSessionHandler)
			r.Get("/", app.sessionHandler.ViewHandler)
			r.Put("/room", app.sessionHandler.JoinRoomHandler)
			r.Get("/messages", app.sessionHandler.ListMessagesHandler)
			r.Post("/messages", app.sessionHandler.SendHandler)
			r.Patch("/messages/{messageID}", app.sessionHandler.EditMessageHandler)
			r.Delete("/messages/{messageID}", app.sessionHandler.DeleteMessageHandler)
			r.Post("/messages/{messageID}/reactions", app.sessionHandler.AddReactionHandler)
			r.Delete("/messages/{messageID}/reactions/{emoji}", app.sessionHandler.RemoveReactionHandler)
			r.Post("/typing", app.sessionHandler.TypingHandler)
			r.Router.Get("/ws", app.viewStream.Handler)
		})
	})

	app.router.Mount("/api", api)

	app.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", app.config.Hostname, app.config.Port),
		Handler: app.router.Router,
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}
	if app.config.Mode == ProdMode {
		app.server.TLSConfig = tlsConfig()
	}

	return app, nil
}

// NewLogger writes text records with the base name of the source file.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))
}

func (app *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(app.config.AllowedOrigins, "*") ||
		slices.Contains(app.config.AllowedOrigins, origin)
}

func (app *App) Handler() http.Handler {
	return app.router.Router
}

// Start serves until the app context is done, then runs the cleanup funcs
// and exits the process.
func (app *App) Start() {
	// listen for shutdown signal
	go func() {
		<-app.context.Done()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()

		done := make(chan struct{})
		go func() {
			if err := app.server.Shutdown(closeCtx); err != nil {
				app.logger.Error(fmt.Sprintf("server shutdown: %v", err))
			}
			app.wg.Wait()
			for _, f := range app.cleanupFuncs {
				f(closeCtx)
			}
			close(done)
		}()

		select {
		case <-done:
			app.logger.Info("app shutdown gracefully")
			app.exit <- 0
		case <-closeCtx.Done():
			app.logger.Info("app shutdown timed out")
			app.exit <- 1
		}
	}()

	app.logger.Info(fmt.Sprintf("app running in %s mode on: %s:%d",
		app.config.Mode, app.config.Hostname, app.config.Port))

	var err error
	if app.config.Mode == ProdMode && app.config.TLS.Key != "" && app.config.TLS.Crt != "" {
		err = app.server.ListenAndServeTLS(app.config.TLS.Crt, app.config.TLS.Key)
	} else {
		err = app.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		failed(1, "server error: %v\n", err)
	}

	code := <-app.exit
	if code != 0 {
		failed(code, "app exit with code: %d\n", code)
	}
	os.Exit(0)
}

// Close releases the sessions and the storage without serving.
func (app *App) Close(ctx context.Context) {
	for _, f := range app.cleanupFuncs {
		f(ctx)
	}
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}

func failed(code int, s string, args ...interface{}) {
	fmt.Printf(s, args...)
	os.Exit(code)
}
