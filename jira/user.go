package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type User struct {
	Resource
	Name        string `json:"name"`
	Key         string `json:"key"`
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress"`
	Active      bool   `json:"active"`
	TimeZone    string `json:"timeZone"`
}

// ID returns the identifier used to address the user:
// the account ID on Jira Cloud, otherwise the username.
func (u *User) ID() string {
	if u.AccountID != "" {
		return u.AccountID
	}
	return u.Name
}

func (c *Client) userParams(id string) url.Values {
	if c.Cloud {
		return url.Values{"accountId": {id}}
	}
	return url.Values{"username": {id}}
}

// User returns the user with the given username,
// or account ID if the client is talking to Jira Cloud.
func (c *Client) User(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.get(ctx, c.url(apiREST, "user"), c.userParams(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SearchUsers returns users whose name, display name or email
// starts with query.
func (c *Client) SearchUsers(ctx context.Context, query string, max int) ([]User, error) {
	q := url.Values{"username": {query}}
	if c.Cloud {
		q = url.Values{"query": {query}}
	}
	if max > 0 {
		q.Set("maxResults", fmt.Sprint(max))
	}
	return getList[User](ctx, c, c.url(apiREST, "user/search"), q, "", KindUser)
}

type UserOptions struct {
	Name        string
	Email       string
	DisplayName string
	// Password is generated by the server if empty.
	Password string
	// Notify sends the new user a sign-up email.
	Notify bool
	// IgnoreExisting returns the existing user instead of an error
	// if the name is taken.
	IgnoreExisting bool
}

// AddUser creates a user.
func (c *Client) AddUser(ctx context.Context, opts UserOptions) (*User, error) {
	if opts.Name == "" {
		return nil, errors.New("add user: empty name")
	}
	body := map[string]any{
		"name":         opts.Name,
		"emailAddress": opts.Email,
		"displayName":  or(opts.DisplayName, opts.Name),
		"notification": opts.Notify,
	}
	if opts.Password != "" {
		body["password"] = opts.Password
	}
	var u User
	err := c.call(ctx, http.MethodPost, c.url(apiREST, "user"), nil, body, &u)
	var jerr *Error
	if opts.IgnoreExisting && errors.As(err, &jerr) && jerr.StatusCode == http.StatusBadRequest {
		for _, msg := range jerr.Messages {
			if strings.Contains(msg, "already exists") {
				return c.User(ctx, opts.Name)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type Group struct {
	Resource
	Name string `json:"name"`
}

func (c *Client) Group(ctx context.Context, name string) (*Group, error) {
	var g Group
	if err := c.get(ctx, c.url(apiREST, "group"), url.Values{"groupname": {name}}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Groups returns the names of groups matching query.
// An empty query matches every group.
func (c *Client) Groups(ctx context.Context, query string) ([]string, error) {
	var resp struct {
		Groups []struct {
			Name string `json:"name"`
		} `json:"groups"`
	}
	q := url.Values{"query": {query}, "maxResults": {"1000"}}
	if err := c.get(ctx, c.url(apiREST, "groups/picker"), q, &resp); err != nil {
		return nil, err
	}
	names := make([]string, len(resp.Groups))
	for i := range resp.Groups {
		names[i] = resp.Groups[i].Name
	}
	return names, nil
}
