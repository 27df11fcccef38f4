package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/validators"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles profile pages
type UserHandler struct {
	userRepository      repositories.UserRepository
	followRepository    repositories.FollowRepository
	dailySongRepository repositories.DailySongRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository, songRepo repositories.DailySongRepository) *UserHandler {
	return &UserHandler{
		userRepository:      userRepo,
		followRepository:    followRepo,
		dailySongRepository: songRepo,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/user/:username", h.GetUser)
	g.GET("/profile", h.GetProfile)
	g.POST("/profile", h.UpdateProfile)
}

type userPageData struct {
	User        *models.User
	Followers   int64
	Following   int64
	IsSelf      bool
	IsFollowing bool
	Posts       []models.DailySong
}

// GetUser shows another account's profile and posts
func (h *UserHandler) GetUser(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	data := userPageData{User: user, IsSelf: user.ID == viewer.UserID}
	if data.Followers, err = h.followRepository.GetFollowersCount(ctx, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if data.Following, err = h.followRepository.GetFollowingCount(ctx, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !data.IsSelf {
		if data.IsFollowing, err = h.followRepository.IsFollowing(ctx, viewer.UserID, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if data.Posts, err = h.dailySongRepository.GetSongsByUserID(ctx, user.ID, 0); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "user", data)
}

type profileFormData struct {
	User   *models.User
	Errors []string
}

// GetProfile shows the viewer's editable profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), viewer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Render(http.StatusOK, "profile", profileFormData{User: user})
}

// UpdateProfile saves the viewer's favorite band and genre
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.FavoriteBand = strings.TrimSpace(req.FavoriteBand)
	req.FavoriteGenre = strings.TrimSpace(req.FavoriteGenre)

	user, err := h.userRepository.GetUserByID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user.FavoriteBand = req.FavoriteBand
	user.FavoriteGenre = req.FavoriteGenre
	if err := c.Validate(&req); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "profile", profileFormData{User: user, Errors: validators.Messages(err)})
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return flashRedirect(c, session.Success, "Profile updated.", userPath(user.Username))
}
