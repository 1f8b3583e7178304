package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
)

type Project struct {
	Resource
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Lead        User   `json:"lead"`
	TypeKey     string `json:"projectTypeKey"`
}

func (c *Client) Projects(ctx context.Context, expand ...string) ([]Project, error) {
	return getList[Project](ctx, c, c.url(apiREST, "project"), expandParams(expand), "", KindProject)
}

// Project returns the project identified by key or ID.
func (c *Client) Project(ctx context.Context, key string, expand ...string) (*Project, error) {
	var p Project
	if err := c.get(ctx, c.url(apiREST, "project/"+key), expandParams(expand), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type Component struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Project     string `json:"project"`
	Lead        User   `json:"lead"`
}

func (c *Client) ProjectComponents(ctx context.Context, key string) ([]Component, error) {
	return getList[Component](ctx, c, c.url(apiREST, "project/"+key+"/components"), nil, "", KindComponent)
}

func (c *Client) Component(ctx context.Context, id string) (*Component, error) {
	var cp Component
	if err := c.get(ctx, c.url(apiREST, "component/"+id), nil, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

type ComponentOptions struct {
	Project     string // key
	Name        string
	Description string
	Lead        string // username
	// AssigneeType is one of PROJECT_DEFAULT, COMPONENT_LEAD,
	// PROJECT_LEAD or UNASSIGNED.
	AssigneeType string
}

func (c *Client) CreateComponent(ctx context.Context, opts ComponentOptions) (*Component, error) {
	if opts.Project == "" || opts.Name == "" {
		return nil, errors.New("create component: project and name required")
	}
	body := map[string]any{"project": opts.Project, "name": opts.Name}
	if opts.Description != "" {
		body["description"] = opts.Description
	}
	if opts.Lead != "" {
		body["leadUserName"] = opts.Lead
	}
	if opts.AssigneeType != "" {
		body["assigneeType"] = opts.AssigneeType
	}
	var cp Component
	if err := c.call(ctx, http.MethodPost, c.url(apiREST, "component"), nil, body, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteComponent deletes the component id.
// If moveIssuesTo is not empty, issues are reassigned to that component.
func (c *Client) DeleteComponent(ctx context.Context, id, moveIssuesTo string) error {
	var q url.Values
	if moveIssuesTo != "" {
		q = url.Values{"moveIssuesTo": {moveIssuesTo}}
	}
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "component/"+id), q, nil, nil)
}

type Version struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Archived    bool   `json:"archived"`
	Released    bool   `json:"released"`
	ReleaseDate string `json:"releaseDate"`
	ProjectID   int    `json:"projectId"`
}

func (c *Client) ProjectVersions(ctx context.Context, key string) ([]Version, error) {
	return getList[Version](ctx, c, c.url(apiREST, "project/"+key+"/versions"), nil, "", KindVersion)
}

func (c *Client) Version(ctx context.Context, id string) (*Version, error) {
	var v Version
	if err := c.get(ctx, c.url(apiREST, "version/"+id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) CreateVersion(ctx context.Context, name, project, description string) (*Version, error) {
	body := map[string]any{"name": name, "project": project}
	if description != "" {
		body["description"] = description
	}
	var v Version
	if err := c.call(ctx, http.MethodPost, c.url(apiREST, "version"), nil, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) UpdateVersion(ctx context.Context, id string, fields map[string]any) (*Version, error) {
	u := c.url(apiREST, "version/"+id)
	if err := c.call(ctx, http.MethodPut, u, nil, fields, nil); err != nil {
		return nil, err
	}
	var v Version
	if err := c.reload(ctx, u, &v); err != nil {
		return nil, fmt.Errorf("reload version %s: %w", id, err)
	}
	return &v, nil
}

// DeleteVersion deletes the version id, optionally moving issues
// which have it as their fix or affected version to other versions.
func (c *Client) DeleteVersion(ctx context.Context, id, moveFixIssuesTo, moveAffectedIssuesTo string) error {
	q := url.Values{}
	if moveFixIssuesTo != "" {
		q.Set("moveFixIssuesTo", moveFixIssuesTo)
	}
	if moveAffectedIssuesTo != "" {
		q.Set("moveAffectedIssuesTo", moveAffectedIssuesTo)
	}
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "version/"+id), q, nil, nil)
}

type Role struct {
	Resource
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Actors []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Type        string `json:"type"`
	} `json:"actors"`
}

// ProjectRoles maps role names to their URLs in the project key.
func (c *Client) ProjectRoles(ctx context.Context, key string) (map[string]string, error) {
	roles := make(map[string]string)
	if err := c.get(ctx, c.url(apiREST, "project/"+key+"/role"), nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) ProjectRole(ctx context.Context, key, id string) (*Role, error) {
	var r Role
	if err := c.get(ctx, c.url(apiREST, "project/"+key+"/role/"+id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// AddRoleActors adds users and groups to the role id of project key.
func (c *Client) AddRoleActors(ctx context.Context, key, id string, users, groups []string) (*Role, error) {
	body := make(map[string]any)
	if len(users) > 0 {
		body["user"] = users
	}
	if len(groups) > 0 {
		body["group"] = groups
	}
	var r Role
	u := c.url(apiREST, "project/"+key+"/role/"+id)
	if err := c.call(ctx, http.MethodPost, u, nil, body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SchemeKind names a scheme associated with a project.
type SchemeKind string

const (
	SchemePermission         SchemeKind = "permissionscheme"
	SchemeNotification       SchemeKind = "notificationscheme"
	SchemePriority           SchemeKind = "priorityscheme"
	SchemeWorkflow           SchemeKind = "workflowscheme"
	SchemeIssueSecurityLevel SchemeKind = "issuesecuritylevelscheme"
)

// ProjectScheme returns the scheme of the given kind used by the project key.
func (c *Client) ProjectScheme(ctx context.Context, key string, kind SchemeKind) (*Resource, error) {
	var r Resource
	u := c.url(apiREST, path.Join("project", key, string(kind)))
	if err := c.get(ctx, u, nil, &r); err != nil {
		return nil, err
	}
	if r.Kind == KindUnknown {
		r.Kind = KindFor(u)
	}
	return &r, nil
}
