package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type Dashboard struct {
	Resource
	ID      string `json:"id"`
	Name    string `json:"name"`
	ViewURL string `json:"view"`
}

// Dashboards returns dashboards visible to the current user.
// Filter may be "favourite" or "my"; empty means all.
// If max is positive, at most max dashboards are returned.
func (c *Client) Dashboards(ctx context.Context, filter string, startAt, max int) ([]Dashboard, error) {
	var q url.Values
	if filter != "" {
		q = url.Values{"filter": {filter}}
	}
	raw, err := c.collect(ctx, c.url(apiREST, "dashboard"), q, "dashboards", startAt, max)
	if err != nil {
		return nil, err
	}
	return decodeList[Dashboard](raw, KindDashboard)
}

func (c *Client) Dashboard(ctx context.Context, id string) (*Dashboard, error) {
	var d Dashboard
	if err := c.get(ctx, c.url(apiREST, "dashboard/"+id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type Gadget struct {
	Resource
	ID       int      `json:"id"`
	ModuleID string   `json:"moduleKey"`
	URI      string   `json:"uri"`
	Title    string   `json:"title"`
	Color    string   `json:"color"`
	Position Position `json:"position"`
}

// Position locates a gadget on its dashboard.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func (c *Client) gadgetsURL(dashboard string) string {
	return c.url(apiREST, "dashboard/"+dashboard+"/gadget")
}

func (c *Client) DashboardGadgets(ctx context.Context, dashboard string) ([]Gadget, error) {
	raw, err := c.collect(ctx, c.gadgetsURL(dashboard), nil, "gadgets", 0, 0)
	if err != nil {
		return nil, err
	}
	gadgets, err := decodeList[Gadget](raw, KindDashboardGadget)
	if err != nil {
		return nil, err
	}
	// The server omits self for gadgets.
	for i := range gadgets {
		if gadgets[i].Self == "" {
			gadgets[i].Self = c.gadgetsURL(dashboard) + "/" + strconv.Itoa(gadgets[i].ID)
		}
	}
	return gadgets, nil
}

// GadgetUpdate holds the gadget attributes to change.
// Empty attributes are left unchanged.
type GadgetUpdate struct {
	Title    string
	Color    string
	Position *Position
}

func (g GadgetUpdate) body() map[string]any {
	body := make(map[string]any)
	if g.Title != "" {
		body["title"] = g.Title
	}
	if g.Color != "" {
		body["color"] = g.Color
	}
	if g.Position != nil {
		body["position"] = g.Position
	}
	return body
}

func (c *Client) UpdateGadget(ctx context.Context, dashboard string, gadget int, upd GadgetUpdate) error {
	u := c.gadgetsURL(dashboard) + "/" + strconv.Itoa(gadget)
	return c.call(ctx, http.MethodPut, u, nil, upd.body(), nil)
}

func (c *Client) DeleteGadget(ctx context.Context, dashboard string, gadget int) error {
	u := c.gadgetsURL(dashboard) + "/" + strconv.Itoa(gadget)
	return c.call(ctx, http.MethodDelete, u, nil, nil, nil)
}

func (c *Client) itemPropertiesURL(dashboard, item string) string {
	return c.url(apiREST, "dashboard/"+dashboard+"/items/"+item+"/properties")
}

// DashboardItemPropertyKeys lists the property keys of a dashboard item.
func (c *Client) DashboardItemPropertyKeys(ctx context.Context, dashboard, item string) ([]string, error) {
	var resp struct {
		Keys []struct {
			Key string `json:"key"`
		} `json:"keys"`
	}
	if err := c.get(ctx, c.itemPropertiesURL(dashboard, item), nil, &resp); err != nil {
		return nil, err
	}
	keys := make([]string, len(resp.Keys))
	for i := range resp.Keys {
		keys[i] = resp.Keys[i].Key
	}
	return keys, nil
}

type DashboardItemProperty struct {
	Resource
	Key   string         `json:"key"`
	Value map[string]any `json:"value"`
}

func (c *Client) DashboardItemProperty(ctx context.Context, dashboard, item, key string) (*DashboardItemProperty, error) {
	var p DashboardItemProperty
	u := c.itemPropertiesURL(dashboard, item) + "/" + key
	if err := c.get(ctx, u, nil, &p); err != nil {
		return nil, err
	}
	if p.Self == "" {
		p.Self = u
		p.Kind = KindDashboardItemProperty
	}
	return &p, nil
}

// SetDashboardItemProperty merges value into the existing value
// of the property key, creating the property if needed.
func (c *Client) SetDashboardItemProperty(ctx context.Context, dashboard, item, key string, value map[string]any) (*DashboardItemProperty, error) {
	merged := make(map[string]any)
	existing, err := c.DashboardItemProperty(ctx, dashboard, item, key)
	switch {
	case IsNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("load property %s: %w", key, err)
	default:
		for k, v := range existing.Value {
			merged[k] = v
		}
	}
	for k, v := range value {
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	u := c.itemPropertiesURL(dashboard, item) + "/" + key
	if err := c.call(ctx, http.MethodPut, u, nil, b, nil); err != nil {
		return nil, err
	}
	return c.DashboardItemProperty(ctx, dashboard, item, key)
}

func (c *Client) DeleteDashboardItemProperty(ctx context.Context, dashboard, item, key string) error {
	u := c.itemPropertiesURL(dashboard, item) + "/" + key
	return c.call(ctx, http.MethodDelete, u, nil, nil, nil)
}
