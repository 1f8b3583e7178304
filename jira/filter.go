package jira

import (
	"context"
	"net/http"
)

// Filter is a saved search.
type Filter struct {
	Resource
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	JQL         string `json:"jql"`
	Favourite   bool   `json:"favourite"`
	Owner       User   `json:"owner"`
	ViewURL     string `json:"viewUrl"`
	SearchURL   string `json:"searchUrl"`
}

func (c *Client) Filter(ctx context.Context, id string) (*Filter, error) {
	var f Filter
	if err := c.get(ctx, c.url(apiREST, "filter/"+id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) CreateFilter(ctx context.Context, name, description, jql string, favourite bool) (*Filter, error) {
	body := map[string]any{
		"name":      name,
		"jql":       jql,
		"favourite": favourite,
	}
	if description != "" {
		body["description"] = description
	}
	var f Filter
	if err := c.call(ctx, http.MethodPost, c.url(apiREST, "filter"), nil, body, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FavouriteFilters returns the filters starred by the current user.
func (c *Client) FavouriteFilters(ctx context.Context) ([]Filter, error) {
	return getList[Filter](ctx, c, c.url(apiREST, "filter/favourite"), nil, "", KindFilter)
}

func (c *Client) DeleteFilter(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "filter/"+id), nil, nil, nil)
}
