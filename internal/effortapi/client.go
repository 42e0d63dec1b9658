package effortapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const DefaultTimeout = 90 * time.Second

// maxBodyBytes bounds how much of a response we buffer. Spreadsheet exports
// are the largest payloads.
const maxBodyBytes = 64 << 20

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the effort backend.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("effortapi: base url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("effortapi: base url must be http(s)")
	}
	u.Path = strings.TrimRight(u.Path, "/")

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: u, http: hc, log: log}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) send(ctx context.Context, op, method, path string, q url.Values, body io.Reader, contentType string) (*response, error) {
	target := c.endpoint(path, q)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("op", op), zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	c.log.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	out := &response{status: res.StatusCode, header: res.Header, body: b}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: res.StatusCode, Message: errorText(b)}
	}
	return out, nil
}

// errorText pulls the backend's error string out of a JSON body. FastAPI
// validation failures use `detail` instead of `error`.
func errorText(b []byte) string {
	if !gjson.ValidBytes(b) {
		return ""
	}
	r := gjson.ParseBytes(b)
	if e := r.Get("error"); e.Exists() && e.Type == gjson.String {
		return e.String()
	}
	if d := r.Get("detail"); d.Exists() {
		if d.Type == gjson.String {
			return d.String()
		}
		if m := d.Get("0.msg"); m.Exists() {
			return m.String()
		}
	}
	return ""
}

// checkBodyError turns a 2xx body carrying `{error: ...}` into a StatusError.
func checkBodyError(op string, res *response) error {
	if msg := errorText(res.body); msg != "" {
		return &StatusError{Op: op, StatusCode: res.status, Message: msg}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values) (*response, error) {
	res, err := c.send(ctx, op, http.MethodGet, path, q, nil, "")
	if err != nil {
		return nil, err
	}
	if err := checkBodyError(op, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in any) (*response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, op, method, path, nil, bytes.NewReader(b), "application/json")
	if err != nil {
		return nil, err
	}
	if err := checkBodyError(op, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) sendForm(ctx context.Context, op, path string, form url.Values) (*response, error) {
	res, err := c.send(ctx, op, http.MethodPost, path, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	if err := checkBodyError(op, res); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeInto(op string, b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// message returns the `message` field of a success body, if any.
func message(b []byte) string {
	if !gjson.ValidBytes(b) {
		return ""
	}
	return gjson.GetBytes(b, "message").String()
}
