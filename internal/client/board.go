package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/eventlog"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/selection"
	"github.com/kazz187/agentcal/internal/task"
)

func (c *Client) Board(ctx context.Context) (*grid.Matrix, error) {
	var m grid.Matrix
	if err := c.do(ctx, http.MethodGet, "/board", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Snapshot(ctx context.Context) (*board.Snapshot, error) {
	var s board.Snapshot
	if err := c.do(ctx, http.MethodGet, "/snapshot", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AddAgent registers an agent. An empty ID is filled in by the server.
func (c *Client) AddAgent(ctx context.Context, a agent.Agent) (*agent.Agent, error) {
	var out agent.Agent
	if err := c.do(ctx, http.MethodPost, "/agents", &a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agents/"+url.PathEscape(id), nil, nil)
}

// AddTask creates a task. An empty ID is filled in by the server.
func (c *Client) AddTask(ctx context.Context, t task.Task) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", &t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Task(ctx context.Context, id string) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), &p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetView(ctx context.Context, view string) (*board.ViewStateResponse, error) {
	var out board.ViewStateResponse
	if err := c.do(ctx, http.MethodPut, "/view", &board.SetViewRequest{View: view}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDate accepts YYYY-MM-DD or RFC 3339.
func (c *Client) SetDate(ctx context.Context, date string) (*board.ViewStateResponse, error) {
	var out board.ViewStateResponse
	if err := c.do(ctx, http.MethodPut, "/date", &board.SetDateRequest{Date: date}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Previous(ctx context.Context) (*board.ViewStateResponse, error) {
	return c.navigate(ctx, "previous")
}

func (c *Client) Next(ctx context.Context) (*board.ViewStateResponse, error) {
	return c.navigate(ctx, "next")
}

func (c *Client) Today(ctx context.Context) (*board.ViewStateResponse, error) {
	return c.navigate(ctx, "today")
}

func (c *Client) navigate(ctx context.Context, step string) (*board.ViewStateResponse, error) {
	var out board.ViewStateResponse
	if err := c.do(ctx, http.MethodPost, "/date/"+step, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Selection(ctx context.Context) (*selection.View, error) {
	var out selection.View
	if err := c.do(ctx, http.MethodGet, "/selection", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Select(ctx context.Context, taskID string) (*selection.View, error) {
	var out selection.View
	if err := c.do(ctx, http.MethodPut, "/selection", &selection.SelectRequest{TaskID: taskID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetSelectionOpen(ctx context.Context, open bool) (*selection.View, error) {
	var out selection.View
	if err := c.do(ctx, http.MethodPut, "/selection/open", &selection.SetOpenRequest{Open: open}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearSelection(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/selection", nil, nil)
}

// SaveSelection applies detail edits to the selected task.
func (c *Client) SaveSelection(ctx context.Context, e selection.Edit) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPatch, "/selection/task", &e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events lists the journaled board events of date (YYYY-MM-DD, empty for
// today), optionally limited to one event type.
func (c *Client) Events(ctx context.Context, date, eventType string) (*eventlog.ListResponse, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if eventType != "" {
		q.Set("type", eventType)
	}
	path := "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out eventlog.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
