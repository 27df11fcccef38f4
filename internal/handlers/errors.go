package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type errorPage struct {
	Code    int
	Message string
}

// HTTPErrorHandler renders failures as the HTML error page, or as JSON for the lookup API.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("path", c.Path()).
			Msg("request failed")
		message = http.StatusText(code)
	}

	var renderErr error
	switch {
	case c.Request().Method == http.MethodHead:
		renderErr = c.NoContent(code)
	case strings.HasPrefix(c.Request().URL.Path, "/get_album_art/"):
		renderErr = c.JSON(code, map[string]string{"error": message})
	default:
		renderErr = c.Render(code, "error", errorPage{Code: code, Message: message})
	}
	if renderErr != nil {
		log.Error().Err(renderErr).Msg("failed to write error response")
	}
}
