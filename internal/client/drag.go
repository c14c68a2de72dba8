package client

import (
	"context"
	"net/http"

	"github.com/kazz187/agentcal/internal/dnd"
	"github.com/kazz187/agentcal/internal/droptarget"
)

func (c *Client) DragState(ctx context.Context) (*dnd.State, error) {
	var out dnd.State
	if err := c.do(ctx, http.MethodGet, "/drag", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BeginDrag(ctx context.Context, taskID string) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/begin", &dnd.BeginRequest{TaskID: taskID})
}

func (c *Client) Hover(ctx context.Context, targetID string) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/hover", &dnd.HoverRequest{TargetID: targetID})
}

func (c *Client) Drop(ctx context.Context, targetID string, data droptarget.Data) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/drop", &dnd.DropRequest{TargetID: targetID, Data: data})
}

func (c *Client) CancelDrop(ctx context.Context) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/cancel", nil)
}

func (c *Client) Nudge(ctx context.Context, dir string) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/nudge", &dnd.NudgeRequest{Direction: dir})
}

func (c *Client) DropHovered(ctx context.Context) (*dnd.DragResponse, error) {
	return c.drag(ctx, "/drop-hovered", nil)
}

func (c *Client) drag(ctx context.Context, path string, in any) (*dnd.DragResponse, error) {
	var out dnd.DragResponse
	if err := c.do(ctx, http.MethodPost, "/drag"+path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
