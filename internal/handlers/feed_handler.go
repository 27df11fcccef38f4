package handlers

import (
	"net/http"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles the public pages
type FeedHandler struct {
	dailySongRepository repositories.DailySongRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(songRepo repositories.DailySongRepository) *FeedHandler {
	return &FeedHandler{dailySongRepository: songRepo}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/all_posts", h.AllPosts)
}

func (h *FeedHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index", nil)
}

type feedData struct {
	Sort          models.SortOrder
	Posts         []models.DailySong
	FollowedPosts []models.DailySong
}

// AllPosts lists every song by date, plus the followed subset for a signed-in viewer
func (h *FeedHandler) AllPosts(c echo.Context) error {
	order := models.ParseSortOrder(c.QueryParam("sort"))
	ctx := c.Request().Context()

	posts, err := h.dailySongRepository.GetAllSongs(ctx, order)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data := feedData{Sort: order, Posts: posts}

	if viewer := session.ViewerFrom(c); viewer != nil {
		data.FollowedPosts, err = h.dailySongRepository.GetFollowedSongs(ctx, viewer.UserID, order)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Render(http.StatusOK, "all_posts", data)
}
