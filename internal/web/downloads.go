package web

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/server"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/tasks"
)

// maxFlashMessage bounds error text carried in the flash cookie.
const maxFlashMessage = 300

type statusResponse struct {
	Downloads []models.StatusRecord `json:"downloads"`
}

// download runs one attempt for the form's url and type and streams the stored file back.
// Failures are reported through a flash notice on the dashboard.
func (a *App) download(w http.ResponseWriter, r *http.Request) {
	userID := server.UserID(r.Context())

	if err := r.ParseForm(); err != nil {
		server.AddFlash(w, r, server.FlashError, "Invalid form submission")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	url := strings.TrimSpace(r.PostFormValue("url"))
	if url == "" {
		server.AddFlash(w, r, server.FlashError, "URL is required")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	kind, err := models.ParseKind(r.PostFormValue("type"))
	if err != nil {
		server.AddFlash(w, r, server.FlashError, "Download failed: "+err.Error())
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	result, err := a.downloader.Materialize(r.Context(), userID, url, kind)
	if err != nil {
		server.AddFlash(w, r, server.FlashError, "Download failed: "+truncate(err.Error(), maxFlashMessage))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	retrieval, err := a.gate.Authorize(r.Context(), userID, result.Filename)
	if err != nil {
		a.logger.Error("completed download is not retrievable", "download_id", result.DownloadID, "error", err)
		server.AddFlash(w, r, server.FlashError, "Download failed: stored file could not be opened")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	server.AddFlash(w, r, server.FlashSuccess, "Download completed successfully!")
	a.serveAttachment(w, r, retrieval)
}

// downloadFile serves a previously stored file to its owner.
func (a *App) downloadFile(w http.ResponseWriter, r *http.Request) {
	retrieval, err := a.gate.Authorize(r.Context(), server.UserID(r.Context()), r.PathValue("filename"))
	if err != nil {
		server.AddFlash(w, r, server.FlashError, "File not found or not ready.")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.serveAttachment(w, r, retrieval)
}

// checkStatus returns the caller's newest downloads as JSON.
func (a *App) checkStatus(w http.ResponseWriter, r *http.Request) {
	userID := server.UserID(r.Context())

	downloads, err := a.history.ListFor(r.Context(), userID, StatusLimit)
	if err != nil {
		a.logger.Error("failed to list downloads", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Could not load downloads"})
		return
	}

	resp := statusResponse{Downloads: make([]models.StatusRecord, 0, len(downloads))}
	for _, d := range downloads {
		resp.Downloads = append(resp.Downloads, d.Record())
	}
	writeJSON(w, http.StatusOK, resp)
}

// serveAttachment streams an authorized file with its user-facing name and closes it.
func (a *App) serveAttachment(w http.ResponseWriter, r *http.Request, retrieval *tasks.Retrieval) {
	defer retrieval.Close()

	ctype := mime.TypeByExtension(filepath.Ext(retrieval.AttachmentName))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": retrieval.AttachmentName})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", disposition)
	http.ServeContent(w, r, retrieval.AttachmentName, retrieval.ModTime, retrieval.File)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// isClientError reports whether err is caused by the request rather than the server.
func isClientError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrDuplicateUsername) ||
		errors.Is(err, shared.ErrDuplicateEmail) ||
		errors.Is(err, shared.ErrInvalidCredentials)
}
