package web

import (
	"bytes"
	"net/http"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/server"
)

// pageData is the view model shared by all page templates.
type pageData struct {
	Title     string
	Username  string
	Flashes   []server.Flash
	Downloads []*models.Download
}

// render executes a page into a buffer first so template errors still produce a clean 500.
func (a *App) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := a.pages[page]
	if !ok {
		a.logger.Error("unknown page template", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	if server.UserID(r.Context()) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, http.StatusOK, "index.html", pageData{Title: "ytfetch", Flashes: server.PopFlashes(w, r)})
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := server.UserID(r.Context())

	user, err := a.accounts.User(r.Context(), userID)
	if err != nil {
		// The session outlived its account.
		a.logger.Warn("session user not found", "user_id", userID, "error", err)
		a.sessions.Logout(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	flashes := server.PopFlashes(w, r)
	downloads, err := a.history.ListFor(r.Context(), userID, 0)
	if err != nil {
		a.logger.Error("failed to list downloads", "user_id", userID, "error", err)
		flashes = append(flashes, server.Flash{Category: server.FlashError, Message: "Could not load your downloads."})
	}

	a.render(w, http.StatusOK, "dashboard.html", pageData{
		Title:     "Dashboard",
		Username:  user.Username(),
		Flashes:   flashes,
		Downloads: downloads,
	})
}

func (a *App) loginPage(w http.ResponseWriter, r *http.Request) {
	if server.UserID(r.Context()) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, http.StatusOK, "login.html", pageData{Title: "Log in", Flashes: server.PopFlashes(w, r)})
}

func (a *App) registerPage(w http.ResponseWriter, r *http.Request) {
	if server.UserID(r.Context()) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, http.StatusOK, "register.html", pageData{Title: "Register", Flashes: server.PopFlashes(w, r)})
}
