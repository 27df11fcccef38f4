package middleware

import (
	"net/http"

	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SessionMiddleware resolves the viewer from the session cookie and loads pending flashes.
// Requests without a valid session continue anonymously.
func SessionMiddleware(mgr *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session.LoadFlashes(c)

			cookie, err := c.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			viewer, err := mgr.Parse(cookie.Value)
			if err != nil {
				log.Debug().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("discarding invalid session")
				mgr.Clear(c)
				return next(c)
			}

			session.SetViewer(c, viewer)
			return next(c)
		}
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session.ViewerFrom(c) == nil {
				session.AddFlash(c, session.Info, "Please log in to access this page.")
				if err := session.PersistFlashes(c); err != nil {
					return err
				}
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}
