// Package server provides HTTP routing, middleware, sessions, and the server lifecycle for the web interface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added to [BasicRouter.Use]; the first one added is outermost.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with "METHOD /path" patterns.
//
// # Middleware
//
//   - [Logging] : method, path, status, size and duration per request
//   - [Recover] : converts handler panics into 500 responses
//   - [NoCache] : Cache-Control, Pragma and Expires headers on every response
//   - [IPRateLimiter] : per-client token buckets (golang.org/x/time/rate) for login and register
//   - [Sessions.Load] and [RequireUser] : session cookie verification and login redirects
//
// # Sessions
//
// Sessions are HS256-signed tokens in an HttpOnly cookie. The authenticated user ID travels in the
// request context ([UserID]) and is passed explicitly to every core operation.
//
// # Flash Notices
//
// [AddFlash] and [PopFlashes] carry one-shot success/error notices across a redirect in a cookie.
package server
