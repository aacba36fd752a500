package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/report"
	"ttm/internal/services"
	"ttm/internal/status"
	"ttm/internal/timer"
	"ttm/internal/tracker"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Client talks to a running daemon over HTTP.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

var _ Backend = (*Client)(nil)

// NewClient builds a client for bind. An empty bind returns a nil client.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Ping checks that the daemon answers. It returns ErrAPIUnavailable-wrapped
// errors when it does not.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.DaemonStatus(ctx)
	return err
}

// DaemonStatus fetches the daemon runtime summary.
func (c *Client) DaemonStatus(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &payload)
	return payload, err
}

func (c *Client) Status(ctx context.Context) (status.Snapshot, error) {
	payload, err := c.DaemonStatus(ctx)
	return payload.Status, err
}

func (c *Client) Projects(ctx context.Context, includeArchived bool) ([]tracker.ProjectSummary, error) {
	values := url.Values{}
	if includeArchived {
		values.Set("archived", "1")
	}
	var payload ProjectListResponse
	err := c.do(ctx, http.MethodGet, "/api/projects", values, nil, &payload)
	return payload.Projects, err
}

func (c *Client) AddProject(ctx context.Context, name, color string) (ledger.Project, error) {
	var payload ProjectResponse
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, ProjectRequest{Name: name, Color: color}, &payload)
	return payload.Project, err
}

func (c *Client) RenameProject(ctx context.Context, ref, name string) (ledger.Project, error) {
	return c.projectAction(ctx, ref, "rename", RenameRequest{Name: name})
}

func (c *Client) SetColor(ctx context.Context, ref, color string) (ledger.Project, error) {
	return c.projectAction(ctx, ref, "color", ColorRequest{Color: color})
}

func (c *Client) SetArchived(ctx context.Context, ref string, archived bool) (ledger.Project, error) {
	action := "unarchive"
	if archived {
		action = "archive"
	}
	return c.projectAction(ctx, ref, action, nil)
}

func (c *Client) DeleteProject(ctx context.Context, ref string) (ledger.Project, error) {
	var payload ProjectResponse
	err := c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(ref), nil, nil, &payload)
	return payload.Project, err
}

func (c *Client) ResetProject(ctx context.Context, ref string) (int64, error) {
	var payload ResetResponse
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(ref)+"/reset", nil, nil, &payload)
	return payload.Removed, err
}

func (c *Client) projectAction(ctx context.Context, ref, action string, body any) (ledger.Project, error) {
	var payload ProjectResponse
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(ref)+"/"+action, nil, body, &payload)
	return payload.Project, err
}

func (c *Client) Running(ctx context.Context) ([]ledger.TimeEntry, error) {
	var payload EntriesResponse
	err := c.do(ctx, http.MethodGet, "/api/timers", nil, nil, &payload)
	return payload.Entries, err
}

func (c *Client) Start(ctx context.Context, ref string) (timer.Transition, error) {
	return c.timerAction(ctx, ref, "start")
}

func (c *Client) Stop(ctx context.Context, ref string) (timer.Transition, error) {
	return c.timerAction(ctx, ref, "stop")
}

func (c *Client) Toggle(ctx context.Context, ref string) (timer.Transition, error) {
	return c.timerAction(ctx, ref, "toggle")
}

func (c *Client) ToggleSlot(ctx context.Context, index int) (timer.Transition, error) {
	var payload timer.Transition
	err := c.do(ctx, http.MethodPost, "/api/slots/"+strconv.Itoa(index)+"/toggle", nil, nil, &payload)
	return payload, err
}

func (c *Client) timerAction(ctx context.Context, ref, action string) (timer.Transition, error) {
	var payload timer.Transition
	err := c.do(ctx, http.MethodPost, "/api/timers/"+url.PathEscape(ref)+"/"+action, nil, nil, &payload)
	return payload, err
}

func (c *Client) StopAll(ctx context.Context) ([]ledger.TimeEntry, error) {
	var payload EntriesResponse
	err := c.do(ctx, http.MethodPost, "/api/timers/stop-all", nil, nil, &payload)
	return payload.Entries, err
}

func (c *Client) Today(ctx context.Context) (tracker.TodaySummary, error) {
	var payload tracker.TodaySummary
	err := c.do(ctx, http.MethodGet, "/api/today", nil, nil, &payload)
	return payload, err
}

func (c *Client) History(ctx context.Context, days int) (tracker.HistoryResult, error) {
	values := url.Values{}
	if days > 0 {
		values.Set("days", strconv.Itoa(days))
	}
	var payload tracker.HistoryResult
	err := c.do(ctx, http.MethodGet, "/api/history", values, nil, &payload)
	return payload, err
}

func (c *Client) Export(ctx context.Context, w io.Writer, format report.Format) error {
	values := url.Values{"format": []string{string(format)}}
	resp, err := c.send(ctx, http.MethodGet, "/api/export", values, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("copy export: %w", err)
	}
	return nil
}

func (c *Client) ResetAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reset", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send issues the request and turns non-2xx responses into marked errors.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if c == nil {
		return nil, ErrAPIUnavailable
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if origin, ok := services.OriginFromContext(ctx); ok {
		req.Header.Set("X-TTM-Origin", origin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload ErrorResponse
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: api returned %d: %s", services.MarkerForStatus(resp.StatusCode), resp.StatusCode, message)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
