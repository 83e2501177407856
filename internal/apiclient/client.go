package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brk3/habitd/internal/server"
	"github.com/brk3/habitd/pkg/habit"
)

// Client is the thin HTTP client the CLI commands and the nudge job use.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(base, token string) *Client {
	return &Client{
		BaseURL: base,
		Token:   token,
		HTTP:    http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var apiErr server.ErrorResponse
		if json.NewDecoder(res.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, res.Status)
		}
		return fmt.Errorf("%s %s: %s", method, path, res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	var resp server.HabitListResponse
	if err := c.do(ctx, "GET", "/habits", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Habits, nil
}

func (c *Client) GetHabitSummary(ctx context.Context, habitID string) (*server.HabitSummaryResponse, error) {
	var out server.HabitSummaryResponse
	if err := c.do(ctx, "GET", "/habits/"+habitID+"/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddProgress(ctx context.Context, habitID string, amount int, date string) (*habit.ProgressSnapshot, error) {
	req := server.ProgressRequest{ProgressToAdd: amount, Date: date}
	var out habit.ProgressSnapshot
	if err := c.do(ctx, "PATCH", "/habits/"+habitID+"/progress", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStats(ctx context.Context, days int) (*habit.StatsSummary, error) {
	path := "/stats"
	if days > 0 {
		path = fmt.Sprintf("/stats?days=%d", days)
	}
	var out habit.StatsSummary
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
