// Package client talks to the timesup cloud API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "timesup/internal/errors"
	"timesup/internal/model"
)

// Client is safe for concurrent use. Alarm and Pomodoro calls need a token
// from Login or Register.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type PomodoroState struct {
	Settings      model.PomodoroSettings `json:"settings"`
	PomodoroCount int                    `json:"pomodoroCount"`
	AutoPomodoro  bool                   `json:"autoPomodoro"`
	Version       int                    `json:"version"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) List(ctx context.Context) ([]model.Alarm, error) {
	var resp struct {
		Alarms []model.Alarm `json:"alarms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/alarms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alarms, nil
}

func (c *Client) Create(ctx context.Context, a model.Alarm) (model.Alarm, error) {
	var resp struct {
		Alarm model.Alarm `json:"alarm"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/alarms", a, &resp); err != nil {
		return model.Alarm{}, err
	}
	return resp.Alarm, nil
}

func (c *Client) Update(ctx context.Context, id string, patch model.AlarmPatch) (model.Alarm, error) {
	var resp struct {
		Alarm model.Alarm `json:"alarm"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/alarms/"+url.PathEscape(id), patch, &resp); err != nil {
		return model.Alarm{}, err
	}
	return resp.Alarm, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/alarms/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PomodoroState(ctx context.Context) (*PomodoroState, error) {
	var resp struct {
		State PomodoroState `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pomodoro/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.State, nil
}

// RecordSession reports a finished countdown without a version check.
func (c *Client) RecordSession(ctx context.Context, mode string, taskID string, duration time.Duration) error {
	body := map[string]any{
		"mode":            mode,
		"durationSeconds": int(duration / time.Second),
	}
	if taskID != "" {
		body["taskId"] = taskID
	}
	return c.do(ctx, http.MethodPost, "/api/pomodoro/sessions", body, nil)
}

func (c *Client) History(ctx context.Context, limit int) ([]model.PomodoroSession, error) {
	var resp struct {
		Sessions []model.PomodoroSession `json:"sessions"`
	}
	path := "/api/pomodoro/history?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError turns the server's error envelope into an *apperrors.APIError
// carrying the HTTP status.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error *apperrors.APIError `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return apperrors.New(resp.StatusCode, "http_error", strings.TrimSpace(http.StatusText(resp.StatusCode)))
	}
	envelope.Error.Status = resp.StatusCode
	return envelope.Error
}
