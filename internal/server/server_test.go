package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ytfetch/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("method patterns", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/hello", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hi"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hi", rec.Body.String())

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hello", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("path values", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/items/{name}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.Method + ":" + r.PathValue("name")))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/abc.mp3", nil))
		assert.Equal(t, "GET:abc.mp3", rec.Body.String())
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"first", "second", "handler"}, order)

		order = nil
		Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}), mark("a"), mark("b")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"a", "b", "handler"}, order)
	})
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("NoCache", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NoCache(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
		assert.Equal(t, "0", rec.Header().Get("Expires"))
	})

	t.Run("Logging", func(t *testing.T) {
		var buf strings.Builder
		logger := shared.NewLogger(&buf)

		rec := httptest.NewRecorder()
		Logging(logger)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Contains(t, buf.String(), "/dashboard")
		assert.Contains(t, buf.String(), "418")
	})

	t.Run("Recover", func(t *testing.T) {
		var buf strings.Builder
		logger := shared.NewLogger(&buf)
		boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

		rec := httptest.NewRecorder()
		Recover(logger)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("IPRateLimiter", func(t *testing.T) {
		limiter := NewIPRateLimiter(0.001, 2)
		h := limiter.Middleware(ok)

		send := func(addr string) int {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusTeapot, send("10.0.0.1:1000"))
		assert.Equal(t, http.StatusTeapot, send("10.0.0.1:1001"))
		assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
		assert.Equal(t, http.StatusTeapot, send("10.0.0.2:1000"), "other clients keep their own bucket")
	})
}

func TestSessions(t *testing.T) {
	sessions := NewSessions("secret", time.Hour, false, shared.NewLogger(&strings.Builder{}))

	whoami := sessions.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	}))

	t.Run("login cookie round trip", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, sessions.Login(rec, "user-1"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		rec = httptest.NewRecorder()
		whoami.ServeHTTP(rec, req)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("tampered cookie is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"})
		rec := httptest.NewRecorder()
		whoami.ServeHTTP(rec, req)

		assert.Empty(t, rec.Body.String())
		cleared := rec.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Equal(t, -1, cleared[0].MaxAge)
	})

	t.Run("RequireUser", func(t *testing.T) {
		protected := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("secret"))
		}))

		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		rec = httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, "secret", rec.Body.String())
	})
}

func TestFlash(t *testing.T) {
	rec := httptest.NewRecorder()
	AddFlash(rec, httptest.NewRequest(http.MethodPost, "/download", nil), FlashError, "Download failed: <boom>")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()

	flashes := PopFlashes(rec, req)
	require.Len(t, flashes, 1)
	assert.Equal(t, Flash{Category: FlashError, Message: "Download failed: <boom>"}, flashes[0])

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	assert.Empty(t, PopFlashes(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("up"))
		}), shared.NewLogger(&strings.Builder{}))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
