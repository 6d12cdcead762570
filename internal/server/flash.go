package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookie carries one-shot notices across a redirect.
const FlashCookie = "ytfetch_flash"

// Flash categories
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notice shown on the next page render.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AddFlash queues a notice for the next page. Earlier notices in the same request are kept.
func AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := append(readFlashes(r), Flash{Category: category, Message: message})

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns the queued notices and clears them.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
	if len(flashes) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     FlashCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flashes
}

func readFlashes(r *http.Request) []Flash {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}

	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
