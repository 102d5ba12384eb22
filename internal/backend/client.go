package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jask/policyqa/internal/config"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the policy QA service.
type Client struct {
	cfg    config.BackendConfig
	http   *http.Client
	logger *slog.Logger
	schema *jsonschema.Schema
}

// New builds a client. A nil httpClient gets a plain client; per-call
// deadlines come from cfg.Timeout.
func New(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = config.DefaultUploadPath
	}
	if cfg.QueryPath == "" {
		cfg.QueryPath = config.DefaultQueryPath
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	schema, err := compileSchema("query_result.json", queryResultSchema())
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, schema: schema}, nil
}

// UploadPDF posts r as multipart form field "file".
func (c *Client) UploadPDF(ctx context.Context, name, mediaType string, r io.Reader) (UploadReceipt, error) {
	if r == nil {
		return UploadReceipt{}, ErrNoFile
	}
	if mediaType == "" {
		mediaType = "application/pdf"
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFilePart(mw, name, mediaType, r))
	}()

	url := c.cfg.Endpoint(c.cfg.UploadPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return UploadReceipt{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, status, reqID, err := c.do(req, "upload", slog.String("file", name))
	if err != nil {
		return UploadReceipt{RequestID: reqID, Status: status}, err
	}

	receipt := UploadReceipt{RequestID: reqID, Status: status}
	var body struct {
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &body) == nil {
		receipt.Message = body.Message
	}
	return receipt, nil
}

func writeFilePart(mw *multipart.Writer, name, mediaType string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ProcessQuery posts {"user_text": text} and decodes the decision.
func (c *Client) ProcessQuery(ctx context.Context, text string) (Answer, error) {
	if text == "" {
		return Answer{}, ErrEmptyQuery
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(QueryRequest{UserText: text})
	if err != nil {
		return Answer{}, fmt.Errorf("encode query: %w", err)
	}
	url := c.cfg.Endpoint(c.cfg.QueryPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Answer{}, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, _, reqID, err := c.do(req, "query", slog.Int("query_len", len(text)))
	if err != nil {
		return Answer{RequestID: reqID}, err
	}
	if err := validate(c.schema, raw); err != nil {
		c.logger.Warn("backend.query.invalid_response", "req_id", reqID, "error", err)
		return Answer{RequestID: reqID}, fmt.Errorf("query: %w", err)
	}
	var res QueryResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return Answer{RequestID: reqID}, fmt.Errorf("query: %w: %v", ErrInvalidResponse, err)
	}
	return Answer{Result: res, RequestID: reqID}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// do sends req and returns the raw body. Non-2xx answers become *APIError.
func (c *Client) do(req *http.Request, op string, attrs ...any) ([]byte, int, string, error) {
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	start := time.Now()

	c.logger.Info("backend.http.request", append([]any{"req_id", reqID, "op", op, "url", req.URL.String()}, attrs...)...)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend.http.send_error", "req_id", reqID, "op", op, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, reqID, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("backend.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, reqID, fmt.Errorf("%s: read body: %w", op, err)
	}

	c.logger.Info("backend.http.response",
		"req_id", reqID,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, reqID, &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw), RequestID: reqID}
	}
	return raw, resp.StatusCode, reqID, nil
}
