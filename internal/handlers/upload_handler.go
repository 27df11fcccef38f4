package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AllowedExtensions are the media types accepted by the upload form.
var AllowedExtensions = []string{"mp3", "wav", "ogg"}

// UploadHandler stores media files under a local directory
type UploadHandler struct {
	dir string
}

// NewUploadHandler creates a new UploadHandler writing into dir
func NewUploadHandler(dir string) *UploadHandler {
	return &UploadHandler{dir: dir}
}

// RegisterUploadRoutes registers upload routes
func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.GET("/upload", h.UploadForm)
	g.POST("/upload", h.Upload)
}

func (h *UploadHandler) UploadForm(c echo.Context) error {
	return c.Render(http.StatusOK, "upload", map[string]interface{}{"Allowed": AllowedExtensions})
}

// Upload stores the submitted file if its extension is allowed
func (h *UploadHandler) Upload(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return h.reject(c, "No file selected.")
		}
		return h.reject(c, "No file part in the request.")
	}

	name := SecureFilename(file.Filename)
	if name == "" {
		return h.reject(c, "No file selected.")
	}
	if !allowedFile(name) {
		return h.reject(c, "File type not allowed. Allowed: "+strings.Join(AllowedExtensions, ", ")+".")
	}

	if err := h.store(file, name); err != nil {
		log.Error().Err(err).Str("filename", name).Msg("failed to store upload")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store file")
	}

	metrics.Uploads.WithLabelValues("stored").Inc()
	log.Info().Uint("user_id", viewer.UserID).Str("filename", name).Int64("size", file.Size).Msg("file uploaded")
	return flashRedirect(c, session.Success, "File uploaded.", "/mypage")
}

func (h *UploadHandler) reject(c echo.Context, message string) error {
	metrics.Uploads.WithLabelValues("rejected").Inc()
	return flashRedirect(c, session.Error, message, "/upload")
}

func (h *UploadHandler) store(file *multipart.FileHeader, name string) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client-supplied name to a flat ASCII filename.
// It returns "" when nothing usable is left.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = filenameUnsafe.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
