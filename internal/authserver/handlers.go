package authserver

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/shotty/internal/authsession"
)

const indexPage = `<!DOCTYPE html>
<html><head><title>shotty</title></head>
<body><p>Authorize shotty to create shared links in your Dropbox.</p>
<p><a href="/authorize">Connect to Dropbox</a></p></body></html>
`

const tokenPage = `<!DOCTYPE html>
<html><head><title>shotty</title></head>
<body><p>Authorization complete. Copy this access token into your shotty config:</p>
<pre>%s</pre></body></html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, indexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "ok")
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sess, redirect, err := s.manager.Begin(sessionID(r))
	if err != nil {
		s.logger.Error("starting authorization", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.store.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := authsession.Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	ctx := r.Context()
	if s.opts.ExchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ExchangeTimeout)
		defer cancel()
	}

	w.Header().Set("Cache-Control", "no-store")

	id := sessionID(r)
	token, err := s.manager.Complete(ctx, id, cb)

	// A callback is terminal for its session whatever the outcome.
	s.endSession(w, id)

	if err != nil {
		s.writeCallbackError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, tokenPage, html.EscapeString(token))
}

// endSession drops the session and tells the browser to forget its cookie.
func (s *Server) endSession(w http.ResponseWriter, id string) {
	if id == "" {
		return
	}

	s.store.Delete(id)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeCallbackError maps flow errors to responses. A state mismatch looks
// like a missing page so probes learn nothing.
func (s *Server) writeCallbackError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *authsession.ProviderDeniedError

	switch {
	case errors.Is(err, authsession.ErrStateMismatch):
		http.NotFound(w, r)
	case errors.As(err, &denied):
		http.Error(w, "Authorization failed: "+html.EscapeString(denied.Code), http.StatusBadRequest)
	case errors.Is(err, authsession.ErrMissingCode):
		http.Error(w, "Authorization failed: missing code", http.StatusBadRequest)
	default:
		http.Error(w, "Authorization failed: could not obtain an access token", http.StatusBadGateway)
	}
}

// sessionID returns the session cookie value, or "" when absent.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}

	return c.Value
}
