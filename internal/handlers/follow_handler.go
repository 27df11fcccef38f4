package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.GET("/follow/:username", h.FollowUser)
	g.GET("/unfollow/:username", h.UnfollowUser)
}

// FollowUser follows the account named in the path
func (h *FollowHandler) FollowUser(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	username := c.Param("username")

	target, err := h.userRepository.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return flashRedirect(c, session.Error, "User not found.", "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if target.ID == viewer.UserID {
		return flashRedirect(c, session.Error, "You cannot follow yourself.", userPath(target.Username))
	}

	if err := h.followRepository.Follow(c.Request().Context(), viewer.UserID, target.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	metrics.FollowMutations.WithLabelValues("follow").Inc()
	log.Debug().Uint("follower_id", viewer.UserID).Uint("following_id", target.ID).Msg("follow")
	return flashRedirect(c, session.Success, "You are now following "+target.Username+".", userPath(target.Username))
}

// UnfollowUser removes the follow edge, if any
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	username := c.Param("username")

	target, err := h.userRepository.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return flashRedirect(c, session.Error, "User not found.", "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if target.ID == viewer.UserID {
		return flashRedirect(c, session.Error, "You cannot unfollow yourself.", userPath(target.Username))
	}

	if err := h.followRepository.Unfollow(c.Request().Context(), viewer.UserID, target.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	metrics.FollowMutations.WithLabelValues("unfollow").Inc()
	return flashRedirect(c, session.Info, "You have unfollowed "+target.Username+".", userPath(target.Username))
}
