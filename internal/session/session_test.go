package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSignAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	token, err := m.Sign(&models.User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	v, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), v.UserID)
	assert.Equal(t, "alice", v.Username)

	_, err = NewManager("other", time.Hour, false).Parse(token)
	assert.Error(t, err, "wrong secret")
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.Sign(&models.User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour, false).Parse(token)
	assert.Error(t, err)
}

func TestIssueSetsCookieAndViewer(t *testing.T) {
	m := NewManager("secret", time.Hour, true)
	c, rec := newContext()

	require.NoError(t, m.Issue(c, &models.User{ID: 3, Username: "bob"}))

	v := ViewerFrom(c)
	require.NotNil(t, v)
	assert.Equal(t, uint(3), v.UserID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	m.Clear(c)
	assert.Nil(t, ViewerFrom(c))
}

func TestFlashRoundTrip(t *testing.T) {
	c, rec := newContext()
	AddFlash(c, Success, "saved")
	AddFlash(c, Error, "but not everything")
	require.NoError(t, PersistFlashes(c))

	var flash *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == FlashCookieName {
			flash = ck
		}
	}
	require.NotNil(t, flash)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(flash)
	next := e.NewContext(req, httptest.NewRecorder())
	LoadFlashes(next)

	msgs := Flashes(next)
	require.Len(t, msgs, 2)
	assert.Equal(t, FlashMessage{Category: Success, Message: "saved"}, msgs[0])
	assert.Empty(t, Flashes(next), "flashes are consumed once")
}

func TestLoadFlashesIgnoresGarbage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FlashCookieName, Value: "%%%"})
	c := e.NewContext(req, httptest.NewRecorder())

	LoadFlashes(c)
	assert.Empty(t, Flashes(c))
}
