package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IDTokenVerifier verifies Firebase ID tokens; *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	userRepository repositories.UserRepository
	sessions       *session.Manager
	firebaseAuth   IDTokenVerifier
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil to disable Firebase login.
func NewAuthHandler(userRepo repositories.UserRepository, sessions *session.Manager, firebaseAuth IDTokenVerifier) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		sessions:       sessions,
		firebaseAuth:   firebaseAuth,
	}
}

// RegisterAuthRoutes registers the credential exchange routes. limiter guards the POST endpoints.
func (h *AuthHandler) RegisterAuthRoutes(e *echo.Echo, limiter echo.MiddlewareFunc, requireLogin echo.MiddlewareFunc) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, limiter)
	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register, limiter)
	e.GET("/logout", h.Logout, requireLogin)
	if h.firebaseAuth != nil {
		e.POST("/firebase-login", h.FirebaseLogin, limiter)
	}
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login", models.LoginRequest{})
}

func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return c.Render(http.StatusOK, "register", models.RegisterRequest{})
}

// Register creates an account with a bcrypt-hashed password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Username = strings.TrimSpace(req.Username)

	if err := c.Validate(&req); err != nil {
		for _, msg := range validators.Messages(err) {
			session.AddFlash(c, session.Error, msg)
		}
		return c.Render(http.StatusUnprocessableEntity, "register", models.RegisterRequest{Username: req.Username})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{Username: req.Username, Password: string(hashedPassword)}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			session.AddFlash(c, session.Error, "Username already exists")
			return c.Render(http.StatusConflict, "register", models.RegisterRequest{Username: req.Username})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("account registered")
	return flashRedirect(c, session.Success, "Registration successful", "/login")
}

// Login checks credentials and starts a session
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}

	invalid := func() error {
		session.AddFlash(c, session.Error, "Invalid username or password")
		return c.Render(http.StatusUnauthorized, "login", models.LoginRequest{Username: req.Username})
	}

	if err := c.Validate(&req); err != nil {
		return invalid()
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return invalid()
	}

	if err := h.sessions.Issue(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start session")
	}
	return redirect(c, "/mypage")
}

// Logout ends the session
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	return redirect(c, "/")
}

// FirebaseLogin exchanges a Firebase ID token for a session, creating the account on first use
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	idToken := c.FormValue("id_token")
	if idToken == "" {
		return flashRedirect(c, session.Error, "Missing Firebase ID token", "/login")
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Warn().Err(err).Msg("firebase token rejected")
		return flashRedirect(c, session.Error, "Invalid Firebase ID token", "/login")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = h.createFirebaseUser(ctx, token)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.sessions.Issue(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start session")
	}
	return redirect(c, "/mypage")
}

var handleUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (h *AuthHandler) createFirebaseUser(ctx context.Context, token *auth.Token) (*models.User, error) {
	base := ""
	if name, ok := token.Claims["name"].(string); ok {
		base = name
	} else if email, ok := token.Claims["email"].(string); ok {
		base, _, _ = strings.Cut(email, "@")
	}
	base = strings.Trim(handleUnsafe.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "user"
	}
	if len(base) > 60 {
		base = base[:60]
	}

	uid := token.UID
	candidates := []string{base, base + "_" + shortUID(uid, 6), base + "_" + shortUID(uid, 12)}
	for _, username := range candidates {
		user := &models.User{Username: username, FirebaseUID: &uid}
		err := h.userRepository.CreateUser(ctx, user)
		if err == nil {
			log.Info().Uint("user_id", user.ID).Str("username", username).Msg("account created from firebase login")
			return user, nil
		}
		if !errors.Is(err, repositories.ErrUsernameTaken) {
			return nil, err
		}
	}
	return nil, repositories.ErrUsernameTaken
}

func shortUID(uid string, n int) string {
	uid = handleUnsafe.ReplaceAllString(uid, "")
	if len(uid) > n {
		return uid[:n]
	}
	return uid
}
