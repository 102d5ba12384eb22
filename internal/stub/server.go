package stub

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jask/policyqa/internal/config"
)

const uploadedMessage = "PDF processed and indexed successfully."

// Options tune the stand-in backend.
type Options struct {
	UploadPath string
	QueryPath  string

	// RequireUpload makes queries fail until a PDF has been uploaded.
	RequireUpload  bool
	MaxUploadBytes int64
}

// Server answers the two policy QA calls from canned fixtures.
type Server struct {
	fixtures FixtureSet
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	lastUpload string
	uploads    int
	queries    int
}

func NewServer(fixtures FixtureSet, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UploadPath == "" {
		opts.UploadPath = config.DefaultUploadPath
	}
	if opts.QueryPath == "" {
		opts.QueryPath = config.DefaultQueryPath
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Server{fixtures: fixtures, opts: opts, logger: logger}
}

// Echo builds the router.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("stub.http.request",
				"req_id", c.Request().Header.Get("X-Request-ID"),
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"elapsed_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.POST(s.opts.UploadPath, s.handleUpload)
	e.POST(s.opts.QueryPath, s.handleQuery)
	return e
}

// Stats is what /healthz reports.
type Stats struct {
	Status     string `json:"status"`
	LastUpload string `json:"last_upload,omitempty"`
	Uploads    int    `json:"uploads"`
	Queries    int    `json:"queries"`
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Status: "ok", LastUpload: s.lastUpload, Uploads: s.uploads, Queries: s.queries}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Stats())
}

func (s *Server) handleUpload(c echo.Context) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return detail(http.StatusRequestEntityTooLarge, "file too large")
		}
		return detail(http.StatusBadRequest, "No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if !mt.Is("application/pdf") {
		return detail(http.StatusBadRequest, "uploaded file is not a PDF")
	}
	if _, err := io.Copy(io.Discard, f); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastUpload = fh.Filename
	s.uploads++
	s.mu.Unlock()
	s.logger.Info("stub.upload", "file", fh.Filename, "size", fh.Size)
	return c.JSON(http.StatusOK, map[string]string{"message": uploadedMessage})
}

type queryBody struct {
	UserText *string `json:"user_text"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var body queryBody
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "request body is not valid JSON")
	}
	if body.UserText == nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{
				"loc":  []string{"body", "user_text"},
				"msg":  "field required",
				"type": "value_error.missing",
			}},
		})
	}

	s.mu.Lock()
	uploaded := s.uploads > 0
	s.queries++
	s.mu.Unlock()
	if s.opts.RequireUpload && !uploaded {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No policy uploaded"})
	}

	f := s.fixtures.Match(*body.UserText)
	s.logger.Info("stub.query", "fixture", f.Name, "query_len", len(*body.UserText))
	return c.JSON(http.StatusOK, f.Result())
}
