package router_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/jobs"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/router"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testApp struct {
	server    *httptest.Server
	db        *gorm.DB
	calendar  *calendar.Calendar
	clock     *clock
	uploadDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.NewDB(t)
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cal := calendar.NewWithClock(time.UTC, clk.Now)
	uploadDir := filepath.Join(t.TempDir(), "uploads")

	e, err := router.New(router.Dependencies{
		SQL:       db,
		Sessions:  session.NewManager("test-secret", time.Hour, false),
		Calendar:  cal,
		UploadDir: uploadDir,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, db: db, calendar: cal, clock: clk, uploadDir: uploadDir}
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: a.server.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) read(resp *http.Response, err error) (int, string) {
	b.t.Helper()
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body)
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	return b.read(b.client.Get(b.base + path))
}

// csrfToken returns the token of the CSRF cookie, visiting the landing page first if there is none yet.
func (b *browser) csrfToken() string {
	b.t.Helper()
	u, err := url.Parse(b.base)
	require.NoError(b.t, err)
	for attempt := 0; attempt < 2; attempt++ {
		for _, ck := range b.client.Jar.Cookies(u) {
			if ck.Name == "_csrf" {
				return ck.Value
			}
		}
		b.get("/")
	}
	b.t.Fatal("no CSRF cookie issued")
	return ""
}

func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	withToken := url.Values{"csrf_token": {b.csrfToken()}}
	for k, v := range form {
		withToken[k] = v
	}
	return b.read(b.client.PostForm(b.base+path, withToken))
}

func (b *browser) upload(filename string, content []byte) (int, string) {
	b.t.Helper()
	token := b.csrfToken()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(b.t, w.WriteField("csrf_token", token))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, err = part.Write(content)
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())
	return b.read(b.client.Post(b.base+"/upload", w.FormDataContentType(), &buf))
}

func (b *browser) signUp(username, password string) {
	b.t.Helper()
	status, body := b.post("/register", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusOK, status)
	require.Contains(b.t, body, "Registration successful")

	status, body = b.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusOK, status)
	require.Contains(b.t, body, "<h2>Today's song</h2>")
}

func section(body, start string) string {
	i := strings.Index(body, start)
	if i < 0 {
		return ""
	}
	rest := body[i:]
	if j := strings.Index(rest, "</ul>"); j >= 0 {
		return rest[:j]
	}
	return rest
}

func TestFollowedFeedAndDailyReset(t *testing.T) {
	app := newTestApp(t)

	u1 := app.browser(t)
	u1.signUp("u1", "pw1")
	status, body := u1.post("/post_daily_song", url.Values{
		"title":     {"A"},
		"artist":    {"X"},
		"genre":     {"pop"},
		"music_url": {"http://e.g/1"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `class="current-song">A by X`)

	u2 := app.browser(t)
	u2.signUp("u2", "pw2")
	status, body = u2.get("/follow/u1")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You are now following u1.")

	status, body = u2.get("/all_posts")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, section(body, `<ul class="followed-posts">`), "u1</a>: A by X")
	assert.Contains(t, section(body, `<ul class="all-posts">`), "u1</a>: A by X")

	app.clock.Advance(24 * time.Hour)
	sweep := jobs.NewResetSweep(repositories.NewPostgresDailySongRepository(app.db), app.calendar, time.Second)
	n, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	status, body = u1.get("/mypage")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `class="no-current-song"`)
	assert.NotContains(t, body, `class="current-song"`)
	assert.Contains(t, body, "2024-05-01: A by X")
}

func TestResubmissionKeepsOneCurrentSong(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	for _, title := range []string{"first", "second", "third"} {
		status, _ := u.post("/post_daily_song", url.Values{
			"title": {title}, "artist": {"band"}, "genre": {"rock"}, "music_url": {"https://example.com/" + title},
		})
		require.Equal(t, http.StatusOK, status)
	}

	var current []models.DailySong
	require.NoError(t, app.db.Where("is_current = ?", true).Find(&current).Error)
	require.Len(t, current, 1)
	assert.Equal(t, "third", current[0].Title)

	_, body := u.get("/mypage")
	assert.Contains(t, body, `class="current-song">third by band`)
}

func TestPostDailySongValidation(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.post("/post_daily_song", url.Values{
		"title": {""}, "artist": {"band"}, "genre": {"polka"}, "music_url": {"not a url"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "title is required")
	assert.Contains(t, body, "music_url must be a valid URL")
	assert.Contains(t, body, "genre must be one of")

	var count int64
	require.NoError(t, app.db.Model(&models.DailySong{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAllPostsSortOrdersAreReversed(t *testing.T) {
	app := newTestApp(t)
	a := testutil.CreateUser(t, app.db, "a")
	b := testutil.CreateUser(t, app.db, "b")
	testutil.CreateSong(t, app.db, a.ID, "2024-04-29", false)
	testutil.CreateSong(t, app.db, b.ID, "2024-04-30", false)
	testutil.CreateSong(t, app.db, a.ID, "2024-04-30", false)
	testutil.CreateSong(t, app.db, b.ID, "2024-05-01", true)

	anon := app.browser(t)
	_, desc := anon.get("/all_posts?sort=desc")
	_, asc := anon.get("/all_posts?sort=asc")
	_, def := anon.get("/all_posts")

	lines := func(body string) []string {
		var out []string
		for _, l := range strings.Split(section(body, `<ul class="all-posts">`), "\n") {
			if strings.Contains(l, "<li>") {
				out = append(out, strings.TrimSpace(l))
			}
		}
		return out
	}

	descLines, ascLines := lines(desc), lines(asc)
	require.Len(t, descLines, 4)
	require.Len(t, ascLines, 4)
	for i := range descLines {
		assert.Equal(t, descLines[i], ascLines[len(ascLines)-1-i])
	}
	assert.Equal(t, descLines, lines(def))
	assert.Contains(t, descLines[0], "2024-05-01")
	assert.NotContains(t, desc, `class="followed-posts"`)
}

func TestSelfFollowIsRejected(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.get("/follow/alice")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You cannot follow yourself.")

	var count int64
	require.NoError(t, app.db.Model(&models.Follow{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFollowUnknownUser(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.get("/follow/nobody")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "User not found.")
}

func TestFollowThenUnfollow(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "bob")
	u := app.browser(t)
	u.signUp("alice", "pw")

	_, body := u.get("/follow/bob")
	assert.Contains(t, body, "1 followers, 0 following")
	assert.Contains(t, body, `href="/unfollow/bob"`)

	_, body = u.get("/follow/bob")
	assert.Contains(t, body, "1 followers, 0 following")

	_, body = u.get("/unfollow/bob")
	assert.Contains(t, body, "You have unfollowed bob.")
	assert.Contains(t, body, "0 followers, 0 following")
	assert.Contains(t, body, `href="/follow/bob"`)
}

func TestUploadAllowList(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.upload("track.exe", []byte("MZ"))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "File type not allowed")
	_, err := os.Stat(filepath.Join(app.uploadDir, "track.exe"))
	assert.True(t, os.IsNotExist(err))

	status, body = u.upload("track.mp3", []byte("ID3"))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "File uploaded.")
	stored, err := os.ReadFile(filepath.Join(app.uploadDir, "track.mp3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), stored)
}

func TestUploadSanitizesFilename(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	_, body := u.upload("../../evil song.ogg", []byte("OggS"))
	assert.Contains(t, body, "File uploaded.")
	_, err := os.Stat(filepath.Join(app.uploadDir, "evil_song.ogg"))
	assert.NoError(t, err)
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)
	anon := app.browser(t)

	for _, path := range []string{"/mypage", "/post_daily_song", "/follow/x", "/user/x", "/messages", "/upload"} {
		status, body := anon.get(path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, body, "Please log in to access this page.", path)
		assert.Contains(t, body, `action="/login"`, path)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	other := app.browser(t)
	status, body := other.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Invalid username or password")

	status, body = other.post("/login", url.Values{"username": {"nobody"}, "password": {"pw"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Invalid username or password")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "alice")

	u := app.browser(t)
	status, body := u.post("/register", url.Values{"username": {"alice"}, "password": {"pw"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Username already exists")
}

func TestLogoutEndsSession(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	_, body := u.get("/logout")
	assert.Contains(t, body, `href="/login"`)

	_, body = u.get("/mypage")
	assert.Contains(t, body, "Please log in to access this page.")
}

func TestUserProfileNotFound(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.get("/user/nobody")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "User not found")
}

func TestSendMessageAndInbox(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signUp("alice", "pw")
	bob := app.browser(t)
	bob.signUp("bob", "pw")

	status, body := alice.post("/send_message/bob", url.Values{"message": {"hello bob"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Message sent.")

	status, body = alice.post("/send_message/bob", url.Values{"message": {strings.Repeat("x", 501)}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "message must be at most 500 characters")

	status, _ = alice.post("/send_message/nobody", url.Values{"message": {"hi"}})
	assert.Equal(t, http.StatusNotFound, status)

	_, body = bob.get("/messages")
	assert.Contains(t, body, `<a href="/user/alice">alice</a>: hello bob`)
}

func TestProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	status, body := u.post("/profile", url.Values{"favorite_band": {"Can"}, "favorite_genre": {"krautrock"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Favorite band: Can / Favorite genre: krautrock")
}

func TestAlbumArtIsNullWithoutCredentials(t *testing.T) {
	app := newTestApp(t)
	status, body := app.browser(t).get("/get_album_art/Radiohead/Creep")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"album_art_url": null}`, body)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	status, body := app.browser(t).get("/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","service":"songoftheday"}`, body)
}

func TestPostWithoutFormTokenIsForbidden(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)
	u.signUp("alice", "pw")

	song := url.Values{"title": {"A"}, "artist": {"X"}, "genre": {"pop"}, "music_url": {"http://e.g/1"}}
	status, body := u.read(u.client.PostForm(u.base+"/post_daily_song", song))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body, "Invalid or missing form token")

	forged := url.Values{"csrf_token": {"not-the-cookie-token"}}
	for k, v := range song {
		forged[k] = v
	}
	status, _ = u.read(u.client.PostForm(u.base+"/post_daily_song", forged))
	assert.Equal(t, http.StatusForbidden, status)

	anon := app.browser(t)
	status, _ = anon.read(anon.client.PostForm(anon.base+"/register", url.Values{"username": {"mallory"}, "password": {"pw"}}))
	assert.Equal(t, http.StatusForbidden, status)

	var songs, users int64
	require.NoError(t, app.db.Model(&models.DailySong{}).Count(&songs).Error)
	require.NoError(t, app.db.Model(&models.User{}).Where("username = ?", "mallory").Count(&users).Error)
	assert.Zero(t, songs)
	assert.Zero(t, users)
}

func TestFormsCarryToken(t *testing.T) {
	app := newTestApp(t)
	u := app.browser(t)

	_, body := u.get("/login")
	token := u.csrfToken()
	require.NotEmpty(t, token)
	assert.Contains(t, body, `name="csrf_token" value="`+token+`"`)
}

func TestHandlesWithReservedCharacters(t *testing.T) {
	app := newTestApp(t)
	dj := app.browser(t)
	dj.signUp("100% real", "pw")

	fan := app.browser(t)
	fan.signUp("fan", "pw")

	escaped := url.PathEscape("100% real")
	status, body := fan.get("/follow/" + escaped)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You are now following 100% real.")
	assert.Contains(t, body, `href="/unfollow/`+escaped+`"`)
	assert.Contains(t, body, `href="/send_message/`+escaped+`"`)

	status, body = fan.post("/send_message/"+escaped, url.Values{"message": {"big fan"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Message sent.")

	status, body = fan.get("/unfollow/" + escaped)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You have unfollowed 100% real.")

	status, body = dj.post("/profile", url.Values{"favorite_band": {"Can"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Favorite band: Can")

	_, body = dj.get("/messages")
	assert.Contains(t, body, `<a href="/user/fan">fan</a>: big fan`)
}
