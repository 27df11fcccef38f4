// Package session keeps the signed-in account and flash messages in cookies.
//
// The session cookie carries an HS256 token with models.SessionClaims. The
// request-scoped Viewer resolved from it is stored on the echo.Context and
// must be passed explicitly to everything that acts on behalf of the account.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "session"
	viewerKey  = "session.viewer"
)

// Viewer is the authenticated account behind a request.
type Viewer struct {
	UserID   uint
	Username string
}

// Manager issues and verifies session cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a Manager signing with secret. Cookies are marked Secure when secure is set.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Issue signs a session for user and sets the session cookie.
func (m *Manager) Issue(c echo.Context, user *models.User) error {
	token, err := m.Sign(user)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	SetViewer(c, &Viewer{UserID: user.ID, Username: user.Username})
	return nil
}

// Clear expires the session cookie and forgets the viewer.
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(viewerKey, nil)
}

// Sign returns the signed session token for user.
func (m *Manager) Sign(user *models.User) (string, error) {
	now := m.now()
	claims := &models.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a session token and returns the viewer it names.
func (m *Manager) Parse(tokenString string) (*Viewer, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid session token")
	}
	return &Viewer{UserID: claims.UserID, Username: claims.Username}, nil
}

// SetViewer stores the viewer on the request context.
func SetViewer(c echo.Context, v *Viewer) {
	c.Set(viewerKey, v)
}

// ViewerFrom returns the request's viewer, or nil for anonymous requests.
func ViewerFrom(c echo.Context) *Viewer {
	v, _ := c.Get(viewerKey).(*Viewer)
	return v
}
