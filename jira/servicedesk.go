package jira

import (
	"context"
	"net/http"
)

// The service desk API is experimental on older servers
// and must be opted into.
var serviceDeskHeader = http.Header{"X-ExperimentalApi": {"opt-in"}}

type ServiceDesk struct {
	Resource
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	ProjectKey  string `json:"projectKey"`
	ProjectName string `json:"projectName"`
}

type RequestType struct {
	Resource
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ServiceDeskID string `json:"serviceDeskId"`
}

type Customer struct {
	Resource
	AccountID   string `json:"accountId"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Email       string `json:"emailAddress"`
	DisplayName string `json:"displayName"`
}

func (c *Client) serviceDeskGet(ctx context.Context, p string, out any) error {
	resp, err := c.session().Do(ctx, &Request{Method: http.MethodGet, URL: c.url(apiServiceDesk, p), Header: serviceDeskHeader})
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) ServiceDesks(ctx context.Context) ([]ServiceDesk, error) {
	var page pagedValues
	if err := c.serviceDeskGet(ctx, "servicedesk", &page); err != nil {
		return nil, err
	}
	return decodeList[ServiceDesk](page.Values, KindServiceDesk)
}

func (c *Client) ServiceDesk(ctx context.Context, id string) (*ServiceDesk, error) {
	var sd ServiceDesk
	if err := c.serviceDeskGet(ctx, "servicedesk/"+id, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (c *Client) RequestTypes(ctx context.Context, serviceDesk string) ([]RequestType, error) {
	var page pagedValues
	if err := c.serviceDeskGet(ctx, "servicedesk/"+serviceDesk+"/requesttype", &page); err != nil {
		return nil, err
	}
	return decodeList[RequestType](page.Values, KindRequestType)
}

func (c *Client) CreateCustomer(ctx context.Context, email, displayName string) (*Customer, error) {
	body := map[string]any{"email": email, "displayName": displayName}
	req, err := jsonRequest(http.MethodPost, c.url(apiServiceDesk, "customer"), body)
	if err != nil {
		return nil, err
	}
	req.Header = serviceDeskHeader
	resp, err := c.session().Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var cu Customer
	if err := decodeResponse(resp, &cu); err != nil {
		return nil, err
	}
	return &cu, nil
}
