// Package web implements the browser-facing HTTP surface of ytfetch.
//
// # Routes
//
//	GET  /                          → index page, or redirect to /dashboard when signed in
//	GET  /dashboard                 → the caller's downloads and flash notices
//	POST /download                  → run one download and stream the file back
//	GET  /download_file/{filename}  → owner-only retrieval of a stored file
//	GET  /check_status              → JSON list of the caller's 10 newest downloads
//	GET  /register, /login          → auth pages
//	POST /register, /login          → JSON account endpoints, rate limited per client
//	GET  /logout                    → clear the session and go home
//
// Every response passes through [server.Recover], [server.Logging] and [server.NoCache], and
// the session cookie is resolved by [server.Sessions.Load] before any handler runs. Protected
// routes use [server.RequireUser]; handlers read the caller with [server.UserID] and pass it
// explicitly to the core operations.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/server"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

// StatusLimit is the number of downloads returned by /check_status.
const StatusLimit = 10

// Downloader runs one synchronous download attempt.
//
// [tasks.Materializer] implements it.
type Downloader interface {
	Materialize(ctx context.Context, userID, url string, kind models.Kind) (*tasks.Result, error)
}

// FileGate authorizes access to stored files.
//
// [tasks.Gate] implements it.
type FileGate interface {
	Authorize(ctx context.Context, userID, filename string) (*tasks.Retrieval, error)
}

// History lists a user's downloads newest first.
//
// [repositories.DownloadRepository] implements it.
type History interface {
	ListFor(ctx context.Context, userID string, limit int) ([]*models.Download, error)
}

// AccountService registers and authenticates users.
//
// [auth.Accounts] implements it.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	User(ctx context.Context, id string) (*models.User, error)
}

// Deps are the collaborators of an [App].
type Deps struct {
	Downloader Downloader
	Gate       FileGate
	History    History
	Accounts   AccountService
	Sessions   *server.Sessions
	Limiter    *server.IPRateLimiter // nil disables throttling of the account endpoints
	Logger     *log.Logger
}

// App holds the handlers and parsed page templates.
type App struct {
	downloader Downloader
	gate       FileGate
	history    History
	accounts   AccountService
	sessions   *server.Sessions
	limiter    *server.IPRateLimiter
	logger     *log.Logger
	pages      map[string]*template.Template
}

// New creates an [App] and parses the embedded page templates.
func New(deps Deps) (*App, error) {
	if deps.Downloader == nil || deps.Gate == nil || deps.History == nil || deps.Accounts == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("%w: web app requires downloader, gate, history, accounts and sessions", shared.ErrMissingArgument)
	}

	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	pages, err := parsePages(templateFS)
	if err != nil {
		return nil, err
	}

	return &App{
		downloader: deps.Downloader,
		gate:       deps.Gate,
		history:    deps.History,
		accounts:   deps.Accounts,
		sessions:   deps.Sessions,
		limiter:    deps.Limiter,
		logger:     logger,
		pages:      pages,
	}, nil
}

// Handler builds the router with all routes and global middleware.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.Recover(a.logger), server.Logging(a.logger), server.NoCache, a.sessions.Load)

	protected := func(h http.HandlerFunc) http.Handler {
		return server.Chain(h, server.RequireUser)
	}
	throttled := func(h http.HandlerFunc) http.Handler {
		if a.limiter == nil {
			return h
		}
		return server.Chain(h, a.limiter.Middleware)
	}

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.index))
	router.Handle(http.MethodGet, "/dashboard", protected(a.dashboard))
	router.Handle(http.MethodPost, "/download", protected(a.download))
	router.Handle(http.MethodGet, "/download_file/{filename}", protected(a.downloadFile))
	router.Handle(http.MethodGet, "/check_status", protected(a.checkStatus))
	router.Handle(http.MethodGet, "/register", http.HandlerFunc(a.registerPage))
	router.Handle(http.MethodPost, "/register", throttled(a.register))
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.loginPage))
	router.Handle(http.MethodPost, "/login", throttled(a.login))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.logout))

	return router
}

// parsePages parses each page template together with the shared layout.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"timestamp": func(d *models.Download) string {
			return d.CreatedAt().UTC().Format("2006-01-02 15:04")
		},
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"index.html", "dashboard.html", "login.html", "register.html"} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}
