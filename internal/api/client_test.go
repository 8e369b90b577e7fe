package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	c, err := New("http://mailgram.test", append([]Option{WithHTTPClient(hc)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	_, err := New(" ")
	require.ErrorContains(t, err, "must not be empty")
	_, err = New("not a url")
	require.ErrorContains(t, err, "invalid base url")
}

func TestStats(t *testing.T) {
	var path string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		path = string(ctx.Path())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"total_users":3,"pending_reports":1}`)
	})

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"total_users": 3, "pending_reports": 1}, stats)
	require.Equal(t, StatsPath, path)
}

func TestBulkAction(t *testing.T) {
	var got bulkRequest
	var method, cookie string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		method = string(ctx.Method())
		cookie = string(ctx.Request.Header.Peek(fasthttp.HeaderCookie))
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetBodyString(`{"success":false,"message":"unknown action"}`)
	}, WithCookie("session=abc"))

	res, err := c.BulkAction(context.Background(), "archive", []string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, BulkResult{Success: false, Message: "unknown action"}, res)
	require.Equal(t, bulkRequest{Action: "archive", Items: []string{"1", "2"}}, got)
	require.Equal(t, "session=abc", cookie)
	require.Equal(t, fasthttp.MethodPost, method)
}

func TestUpload(t *testing.T) {
	var name, contentType, body string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		fh, err := ctx.FormFile("file")
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		name, contentType = fh.Filename, fh.Header.Get("Content-Type")
		f, _ := fh.Open()
		b, _ := io.ReadAll(f)
		body = string(b)
		ctx.SetBodyString(`{"success":true,"file_url":"/uploads/abc"}`)
	})

	u, err := c.Upload(context.Background(), `my "cat".png`, "image/png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/abc", u)
	require.Equal(t, `my "cat".png`, name)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, "PNGDATA", body)
}

func TestUpload_Rejected(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"success":false,"error":"file type not allowed"}`)
	})

	_, err := c.Upload(context.Background(), "a.exe", "", strings.NewReader("MZ"))
	require.ErrorContains(t, err, "file type not allowed")
}

func TestNavigate_FollowsRedirect(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		paths = append(paths, string(ctx.Path()))
		if strings.HasPrefix(string(ctx.Path()), "/admin/toggle_user/") {
			ctx.Redirect("/admin/users", fasthttp.StatusFound)
			return
		}
		ctx.SetBodyString("<html></html>")
	})

	require.NoError(t, c.Navigate(context.Background(), ToggleUserPath("7")))
	require.Equal(t, []string{"/admin/toggle_user/7", "/admin/users"}, paths)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
	})

	_, err := c.Page(context.Background(), "/admin/users")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.HTTPStatusCode())
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Stats(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/admin/delete_user/12", DeleteUserPath("12"))
	require.Equal(t, "/admin/handle_report/4/resolve", HandleReportPath("4", "resolve"))
}
