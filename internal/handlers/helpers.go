package handlers

import (
	"net/http"
	"net/url"

	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// redirect persists queued flashes and sends a 303 to path.
func redirect(c echo.Context, path string) error {
	if err := session.PersistFlashes(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, path)
}

// flashRedirect queues one flash and redirects.
func flashRedirect(c echo.Context, category, message, path string) error {
	session.AddFlash(c, category, message)
	return redirect(c, path)
}

// mustViewer returns the viewer of a route guarded by middleware.RequireLogin.
func mustViewer(c echo.Context) (*session.Viewer, error) {
	v := session.ViewerFrom(c)
	if v == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return v, nil
}

// userPath is the profile URL of username.
func userPath(username string) string {
	return "/user/" + url.PathEscape(username)
}
