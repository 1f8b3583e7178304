package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Board struct {
	Resource
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "scrum" or "kanban"
}

// Boards returns agile boards, at most max if max is positive.
func (c *Client) Boards(ctx context.Context, startAt, max int) ([]Board, error) {
	raw, err := c.collect(ctx, c.url(apiAgile, "board"), nil, "values", startAt, max)
	if err != nil {
		return nil, err
	}
	return decodeList[Board](raw, KindBoard)
}

func (c *Client) Board(ctx context.Context, id int) (*Board, error) {
	var b Board
	if err := c.get(ctx, c.url(apiAgile, "board/"+strconv.Itoa(id)), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

type Sprint struct {
	Resource
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	State         string    `json:"state"` // "future", "active" or "closed"
	Goal          string    `json:"goal"`
	OriginBoardID int       `json:"originBoardId"`
	Start         time.Time `json:"-"`
	End           time.Time `json:"-"`
}

func (s *Sprint) UnmarshalJSON(b []byte) error {
	type alias Sprint
	aux := &struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		*alias
	}{
		alias: (*alias)(s),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	var err error
	if s.Start, err = parseAgileTime(aux.StartDate); err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	if s.End, err = parseAgileTime(aux.EndDate); err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}
	return nil
}

// The agile API reports times in RFC 3339 form,
// unlike the platform API.
func parseAgileTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(timestamp, s)
}

// Sprints returns the sprints of board, optionally filtered by state.
func (c *Client) Sprints(ctx context.Context, board int, state string) ([]Sprint, error) {
	var q url.Values
	if state != "" {
		q = url.Values{"state": {state}}
	}
	u := c.url(apiAgile, "board/"+strconv.Itoa(board)+"/sprint")
	raw, err := c.collect(ctx, u, q, "values", 0, 0)
	if err != nil {
		return nil, err
	}
	return decodeList[Sprint](raw, KindSprint)
}

func (c *Client) Sprint(ctx context.Context, id int) (*Sprint, error) {
	var s Sprint
	if err := c.get(ctx, c.url(apiAgile, "sprint/"+strconv.Itoa(id)), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MoveToSprint moves the issues to the sprint id.
func (c *Client) MoveToSprint(ctx context.Context, id int, issues ...string) error {
	body := map[string]any{"issues": issues}
	u := c.url(apiAgile, "sprint/"+strconv.Itoa(id)+"/issue")
	return c.call(ctx, http.MethodPost, u, nil, body, nil)
}
