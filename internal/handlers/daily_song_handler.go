package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const historyLimit = 20

// DailySongHandler handles the viewer's own page and song submission
type DailySongHandler struct {
	dailySongRepository repositories.DailySongRepository
	userRepository      repositories.UserRepository
	calendar            *calendar.Calendar
	sessions            *session.Manager
}

// NewDailySongHandler creates a new DailySongHandler
func NewDailySongHandler(songRepo repositories.DailySongRepository, userRepo repositories.UserRepository, cal *calendar.Calendar, sessions *session.Manager) *DailySongHandler {
	return &DailySongHandler{
		dailySongRepository: songRepo,
		userRepository:      userRepo,
		calendar:            cal,
		sessions:            sessions,
	}
}

// RegisterDailySongRoutes registers routes that require a signed-in account
func (h *DailySongHandler) RegisterDailySongRoutes(g *echo.Group) {
	g.GET("/mypage", h.MyPage)
	g.GET("/post_daily_song", h.PostDailySongForm)
	g.POST("/post_daily_song", h.PostDailySong)
}

type myPageData struct {
	User    *models.User
	Current *models.DailySong
	History []models.DailySong
}

// MyPage shows today's song of the viewer and their recent history
func (h *DailySongHandler) MyPage(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.sessions.Clear(c)
			return flashRedirect(c, session.Error, "Your account no longer exists.", "/login")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	data := myPageData{User: user}
	data.Current, err = h.dailySongRepository.GetCurrentSong(ctx, viewer.UserID, h.calendar.Today())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	data.History, err = h.dailySongRepository.GetSongsByUserID(ctx, viewer.UserID, historyLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "mypage", data)
}

type songFormData struct {
	Form   models.DailySongRequest
	Errors []string
}

func (h *DailySongHandler) PostDailySongForm(c echo.Context) error {
	return c.Render(http.StatusOK, "post_daily_song", songFormData{Form: models.DailySongRequest{Genre: models.Genres[0].Key}})
}

// PostDailySong replaces the viewer's current song with the submitted one
func (h *DailySongHandler) PostDailySong(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}

	var req models.DailySongRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Artist = strings.TrimSpace(req.Artist)
	req.MusicURL = strings.TrimSpace(req.MusicURL)

	if err := c.Validate(&req); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "post_daily_song", songFormData{Form: req, Errors: validators.Messages(err)})
	}

	song := &models.DailySong{
		UserID:     viewer.UserID,
		Title:      req.Title,
		Artist:     req.Artist,
		Genre:      req.Genre,
		MusicURL:   req.MusicURL,
		DatePosted: h.calendar.Today(),
	}
	if err := h.dailySongRepository.SubmitDailySong(c.Request().Context(), song); err != nil {
		log.Error().Err(err).Uint("user_id", viewer.UserID).Msg("failed to submit daily song")
		session.AddFlash(c, session.Error, "Could not save your song, please try again.")
		return c.Render(http.StatusInternalServerError, "post_daily_song", songFormData{Form: req})
	}

	metrics.DailySongsSubmitted.Inc()
	log.Info().Uint("user_id", viewer.UserID).Uint("song_id", song.ID).Str("date", song.DatePosted).Msg("daily song submitted")
	return flashRedirect(c, session.Success, "Today's song has been posted!", "/mypage")
}
