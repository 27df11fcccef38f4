package session

import (
	"encoding/base64"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

const (
	FlashCookieName = "flash"
	incomingKey     = "session.flash.incoming"
	pendingKey      = "session.flash.pending"
)

// Flash categories.
const (
	Info    = "info"
	Success = "success"
	Error   = "error"
)

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// LoadFlashes moves flashes from the request cookie onto the context and expires the cookie.
func LoadFlashes(c echo.Context) {
	cookie, err := c.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	expireFlashCookie(c)

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return
	}
	var msgs []FlashMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return
	}
	c.Set(incomingKey, msgs)
}

// AddFlash queues a message for the page rendered by this request or, after a redirect, the next one.
func AddFlash(c echo.Context, category, message string) {
	pending, _ := c.Get(pendingKey).([]FlashMessage)
	c.Set(pendingKey, append(pending, FlashMessage{Category: category, Message: message}))
}

// Flashes returns and consumes every flash visible to this request.
func Flashes(c echo.Context) []FlashMessage {
	incoming, _ := c.Get(incomingKey).([]FlashMessage)
	pending, _ := c.Get(pendingKey).([]FlashMessage)
	c.Set(incomingKey, nil)
	c.Set(pendingKey, nil)
	out := make([]FlashMessage, 0, len(incoming)+len(pending))
	out = append(out, incoming...)
	return append(out, pending...)
}

// PersistFlashes writes unconsumed flashes to the flash cookie so they survive a redirect.
func PersistFlashes(c echo.Context) error {
	msgs := Flashes(c)
	if len(msgs) == 0 {
		return nil
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func expireFlashCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
