package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/pkg/spotify"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AlbumArtLookup resolves the album art of a track; *spotify.Client satisfies it.
type AlbumArtLookup interface {
	AlbumArtURL(ctx context.Context, artist, title string) (string, error)
}

// AlbumArtHandler proxies album art lookups
type AlbumArtHandler struct {
	lookup AlbumArtLookup
}

// NewAlbumArtHandler creates a new AlbumArtHandler
func NewAlbumArtHandler(lookup AlbumArtLookup) *AlbumArtHandler {
	return &AlbumArtHandler{lookup: lookup}
}

// RegisterAlbumArtRoutes registers the lookup route
func (h *AlbumArtHandler) RegisterAlbumArtRoutes(e *echo.Echo) {
	e.GET("/get_album_art/:artist/:title", h.GetAlbumArt)
}

// AlbumArtResponse is the JSON body of the lookup; a missing image is null.
type AlbumArtResponse struct {
	AlbumArtURL *string `json:"album_art_url"`
}

// GetAlbumArt returns the album art URL of the track, or null when there is none
func (h *AlbumArtHandler) GetAlbumArt(c echo.Context) error {
	artist, title := c.Param("artist"), c.Param("title")

	url, err := h.lookup.AlbumArtURL(c.Request().Context(), artist, title)
	switch {
	case errors.Is(err, spotify.ErrDisabled):
		metrics.AlbumArtLookups.WithLabelValues("disabled").Inc()
	case err != nil:
		metrics.AlbumArtLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("artist", artist).Str("title", title).Msg("album art lookup failed")
	case url == "":
		metrics.AlbumArtLookups.WithLabelValues("not_found").Inc()
	default:
		metrics.AlbumArtLookups.WithLabelValues("found").Inc()
		return c.JSON(http.StatusOK, AlbumArtResponse{AlbumArtURL: &url})
	}
	return c.JSON(http.StatusOK, AlbumArtResponse{})
}
