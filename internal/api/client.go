// Package api calls the Mailgram HTTP endpoints used by the chat and admin
// views: stats, bulk actions, uploads, server-rendered pages and the
// link-style navigation routes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout = 15 * time.Second
	maxRedirects   = 5

	StatsPath      = "/admin/api/stats"
	BulkActionPath = "/admin/api/bulk-action"
	UploadPath     = "/upload"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *StatusError) HTTPStatusCode() int { return e.Status }

type BulkResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type bulkRequest struct {
	Action string   `json:"action"`
	Items  []string `json:"items"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"file_url"`
	Error   string `json:"error,omitempty"`
}

type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCookie sends a session cookie with every request.
func WithCookie(cookie string) Option {
	return func(c *Client) { c.cookie = strings.TrimSpace(cookie) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

type Client struct {
	base    string
	http    *fasthttp.Client
	cookie  string
	timeout time.Duration
	logger  zerolog.Logger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base url must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("api: invalid base url %q", baseURL)
	}
	c := &Client{
		base:    baseURL,
		http:    &fasthttp.Client{Name: "mailgram", ReadTimeout: defaultTimeout, WriteTimeout: defaultTimeout},
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Stats returns the named admin counters.
func (c *Client) Stats(ctx context.Context) (map[string]int, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, StatsPath, "", nil, false)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{}
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, errors.Wrap(err, "api: decode stats")
	}
	return stats, nil
}

// BulkAction posts {action, items}. A well-formed {success:false} reply is
// returned as a result, not an error.
func (c *Client) BulkAction(ctx context.Context, action string, items []string) (BulkResult, error) {
	payload, err := json.Marshal(bulkRequest{Action: action, Items: items})
	if err != nil {
		return BulkResult{}, errors.Wrap(err, "api: encode bulk action")
	}
	body, err := c.do(ctx, fasthttp.MethodPost, BulkActionPath, "application/json", payload, false)
	if err != nil {
		return BulkResult{}, err
	}
	var res BulkResult
	if err := json.Unmarshal(body, &res); err != nil {
		return BulkResult{}, errors.Wrap(err, "api: decode bulk action")
	}
	return res, nil
}

// Upload posts body as the multipart field "file" and returns the stored
// file's URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(filePartHeader(name, contentType))
	if err != nil {
		return "", errors.Wrap(err, "api: build upload")
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", errors.Wrap(err, "api: read upload")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "api: build upload")
	}

	resp, err := c.do(ctx, fasthttp.MethodPost, UploadPath, mw.FormDataContentType(), buf.Bytes(), false)
	if err != nil {
		return "", err
	}
	var out uploadResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", errors.Wrap(err, "api: decode upload")
	}
	if !out.Success || out.FileURL == "" {
		return "", errors.Errorf("api: upload rejected: %s", out.Error)
	}
	return out.FileURL, nil
}

// Page fetches a server-rendered page.
func (c *Client) Page(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, path, "", nil, true)
}

// Navigate issues a link-style GET with no body, following redirects.
func (c *Client) Navigate(ctx context.Context, path string) error {
	_, err := c.do(ctx, fasthttp.MethodGet, path, "", nil, true)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(name, contentType string) textproto.MIMEHeader {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)
	return h
}

func ToggleUserPath(userID string) string {
	return "/admin/toggle_user/" + url.PathEscape(userID)
}

func DeleteUserPath(userID string) string {
	return "/admin/delete_user/" + url.PathEscape(userID)
}

func HandleReportPath(reportID, action string) string {
	return "/admin/handle_report/" + url.PathEscape(reportID) + "/" + url.PathEscape(action)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, follow bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(method)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if c.cookie != "" {
		req.Header.Set(fasthttp.HeaderCookie, c.cookie)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var err error
	if follow {
		// fasthttp has no deadline variant that follows redirects.
		err = c.http.DoRedirects(req, resp, maxRedirects)
	} else {
		err = c.http.DoDeadline(req, resp, deadline)
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, errors.Wrapf(err, "api: %s %s", method, path)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, &StatusError{Method: method, Path: path, Status: status}
	}
	return append([]byte(nil), resp.Body()...), nil
}
