package jira

import (
	"context"
)

type Status struct {
	Resource
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    StatusCategory `json:"statusCategory"`
}

type StatusCategory struct {
	Resource
	ID        int    `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	ColorName string `json:"colorName"`
}

type Priority struct {
	Resource
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Resolution struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type IssueType struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Subtask     bool   `json:"subtask"`
}

type IssueLinkType struct {
	Resource
	ID      string `json:"id"`
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

type SecurityLevel struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CustomFieldOption struct {
	Resource
	Value string `json:"value"`
}

// Field describes a system or custom issue field.
type Field struct {
	Resource
	ID     string `json:"id"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
	Schema struct {
		Type   string `json:"type"`
		Items  string `json:"items"`
		System string `json:"system"`
		Custom string `json:"custom"`
	} `json:"schema"`
}

func (c *Client) Statuses(ctx context.Context) ([]Status, error) {
	return getList[Status](ctx, c, c.url(apiREST, "status"), nil, "", KindStatus)
}

func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	var s Status
	if err := c.get(ctx, c.url(apiREST, "status/"+id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) StatusCategories(ctx context.Context) ([]StatusCategory, error) {
	return getList[StatusCategory](ctx, c, c.url(apiREST, "statuscategory"), nil, "", KindStatusCategory)
}

func (c *Client) Priorities(ctx context.Context) ([]Priority, error) {
	return getList[Priority](ctx, c, c.url(apiREST, "priority"), nil, "", KindPriority)
}

func (c *Client) Priority(ctx context.Context, id string) (*Priority, error) {
	var p Priority
	if err := c.get(ctx, c.url(apiREST, "priority/"+id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Resolutions(ctx context.Context) ([]Resolution, error) {
	return getList[Resolution](ctx, c, c.url(apiREST, "resolution"), nil, "", KindResolution)
}

func (c *Client) Resolution(ctx context.Context, id string) (*Resolution, error) {
	var r Resolution
	if err := c.get(ctx, c.url(apiREST, "resolution/"+id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) IssueTypes(ctx context.Context) ([]IssueType, error) {
	return getList[IssueType](ctx, c, c.url(apiREST, "issuetype"), nil, "", KindIssueType)
}

func (c *Client) IssueType(ctx context.Context, id string) (*IssueType, error) {
	var t IssueType
	if err := c.get(ctx, c.url(apiREST, "issuetype/"+id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) IssueLinkTypes(ctx context.Context) ([]IssueLinkType, error) {
	return getList[IssueLinkType](ctx, c, c.url(apiREST, "issueLinkType"), nil, "issueLinkTypes", KindIssueLinkType)
}

func (c *Client) SecurityLevel(ctx context.Context, id string) (*SecurityLevel, error) {
	var l SecurityLevel
	if err := c.get(ctx, c.url(apiREST, "securitylevel/"+id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) CustomFieldOption(ctx context.Context, id string) (*CustomFieldOption, error) {
	var o CustomFieldOption
	if err := c.get(ctx, c.url(apiREST, "customFieldOption/"+id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Fields returns every field known to the server, including custom fields.
func (c *Client) Fields(ctx context.Context) ([]Field, error) {
	return getList[Field](ctx, c, c.url(apiREST, "field"), nil, "", KindField)
}
