package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// Client is a client of a Jira server.
// Its zero value is not usable; at least Server must be set.
// A Client must not be copied after first use.
type Client struct {
	// Server is the root of the Jira instance, such as https://jira.example.com
	// or https://example.com/jira for instances served under a context path.
	Server *url.URL

	// Username and Password are sent using HTTP basic authentication.
	Username string
	Password string
	// Token is a personal access token sent as a bearer credential.
	// If set, Username and Password are ignored.
	Token string

	// Cloud selects Jira Cloud semantics:
	// users are addressed by account ID instead of username.
	Cloud bool

	RESTPath     string // default "api"
	RESTVersion  string // default "2"
	AgilePath    string // default "agile"
	AgileVersion string // default "1.0"

	// Header holds extra headers sent with every request.
	Header http.Header

	// MaxRetries is the number of times a transiently failed request is retried.
	// Zero means DefaultMaxRetries; a negative value disables retries.
	MaxRetries int
	// MaxRetryDelay caps the wait between attempts.
	// Zero means DefaultMaxRetryDelay; a negative value retries immediately.
	MaxRetryDelay time.Duration

	// Autofix names a user used to repair updates rejected by the server,
	// for example by setting them as a missing reporter or assignee.
	Autofix string
	// DelayReload is how long to wait after an update before reloading the resource.
	DelayReload time.Duration

	HTTPClient *http.Client
	// Logger receives retry warnings and request traces. Nil discards them.
	Logger *log.Logger

	once sync.Once
	sess *Session
}

type api int

const (
	apiREST api = iota
	apiAgile
	apiServiceDesk
)

func (c *Client) session() *Session {
	c.once.Do(func() {
		hc := c.HTTPClient
		if hc == nil {
			hc = http.DefaultClient
		}
		if c.Token != "" {
			ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
			hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token}))
		}
		s := NewSession(hc)
		s.Header = c.Header
		s.Logger = c.Logger
		if c.Token == "" {
			s.Username = c.Username
			s.Password = c.Password
		}
		switch {
		case c.MaxRetries < 0:
			s.MaxRetries = 0
		case c.MaxRetries > 0:
			s.MaxRetries = c.MaxRetries
		}
		switch {
		case c.MaxRetryDelay < 0:
			s.MaxRetryDelay = 0
		case c.MaxRetryDelay > 0:
			s.MaxRetryDelay = c.MaxRetryDelay
		}
		c.sess = s
	})
	return c.sess
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// url returns the URL of the resource at p under the given API.
// p may include a query string.
func (c *Client) url(a api, p string) string {
	var root string
	switch a {
	case apiAgile:
		root = path.Join("rest", or(c.AgilePath, "agile"), or(c.AgileVersion, "1.0"))
	case apiServiceDesk:
		root = "rest/servicedeskapi"
	default:
		root = path.Join("rest", or(c.RESTPath, "api"), or(c.RESTVersion, "2"))
	}
	u := *c.Server
	p, rawq, _ := strings.Cut(p, "?")
	u.Path = path.Join("/", u.Path, root, p)
	u.RawPath = ""
	u.RawQuery = rawq
	return u.String()
}

// Permalink returns the browsable URL of the issue key, not its REST URL.
func (c *Client) Permalink(key string) string {
	u := *c.Server
	u.Path = path.Join("/", u.Path, "browse", key)
	u.RawQuery = ""
	return u.String()
}

// call sends a request with body encoded as JSON, decoding any response into out.
// A body of type []byte is sent as is.
func (c *Client) call(ctx context.Context, method, u string, params url.Values, body, out any) error {
	req, err := jsonRequest(method, u, body)
	if err != nil {
		return err
	}
	req.Params = params
	resp, err := c.session().Do(ctx, req)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	return nil
}

func jsonRequest(method, u string, body any) (*Request, error) {
	req := &Request{Method: method, URL: u}
	switch v := body.(type) {
	case nil:
	case []byte:
		req.Body = v
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = b
	}
	return req, nil
}

// decodeResponse decodes the body of resp into out, then closes it.
// Resources are decoded with their raw document.
// An empty body leaves a non-resource out untouched.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if r, ok := out.(resource); ok {
		if err := decode(data, "", r); err != nil {
			return fmt.Errorf("decode %T: %w", out, err)
		}
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %T: %w", out, err)
	}
	return nil
}

// pagedValues is the first page of a collection
// from the agile or service desk APIs.
type pagedValues struct {
	Values []json.RawMessage `json:"values"`
}

func (c *Client) get(ctx context.Context, u string, params url.Values, out any) error {
	return c.call(ctx, http.MethodGet, u, params, nil, out)
}

func (c *Client) exists(ctx context.Context, u string) (bool, error) {
	err := c.call(ctx, http.MethodHead, u, nil, nil, nil)
	if IsNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// getList fetches a JSON array, or the array under key if key is not empty.
func getList[T any, P interface {
	*T
	resource
}](ctx context.Context, c *Client, u string, params url.Values, key string, kind Kind) ([]T, error) {
	var raw []json.RawMessage
	if key == "" {
		if err := c.get(ctx, u, params, &raw); err != nil {
			return nil, err
		}
	} else {
		var doc map[string]json.RawMessage
		if err := c.get(ctx, u, params, &doc); err != nil {
			return nil, err
		}
		if b, ok := doc[key]; ok {
			if err := json.Unmarshal(b, &raw); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	return decodeList[T, P](raw, kind)
}

// collect gathers the items under key from a paginated collection,
// starting at startAt. If max is positive, at most max items are returned.
// Pages are requested until the server reports the last page,
// the total is reached, or a page is empty.
func (c *Client) collect(ctx context.Context, u string, params url.Values, key string, startAt, max int) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("startAt", strconv.Itoa(startAt))
		if max > 0 {
			q.Set("maxResults", strconv.Itoa(max-len(all)))
		}
		var doc map[string]json.RawMessage
		if err := c.get(ctx, u, q, &doc); err != nil {
			return nil, err
		}
		var items []json.RawMessage
		if b, ok := doc[key]; ok {
			if err := json.Unmarshal(b, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		all = append(all, items...)

		var total *int
		var isLast *bool
		if b, ok := doc["total"]; ok {
			json.Unmarshal(b, &total)
		}
		if b, ok := doc["isLast"]; ok {
			json.Unmarshal(b, &isLast)
		}
		switch {
		case len(items) == 0:
		case max > 0 && len(all) >= max:
		case isLast != nil && *isLast:
		case total != nil && startAt+len(items) >= *total:
		case total == nil && isLast == nil:
			// not paginated
		default:
			startAt += len(items)
			continue
		}
		break
	}
	if max > 0 && len(all) > max {
		all = all[:max]
	}
	return all, nil
}

// update sends fields to the resource at u with PUT.
// If the server rejects the update and Autofix is set,
// the fields are repaired and the update is retried once.
func (c *Client) update(ctx context.Context, u string, data map[string]any, notify bool) error {
	var params url.Values
	if !notify {
		params = url.Values{"notifyUsers": {"false"}}
	}
	err := c.call(ctx, http.MethodPut, u, params, data, nil)
	var jerr *Error
	if c.Autofix == "" || !errors.As(err, &jerr) || jerr.StatusCode != http.StatusBadRequest {
		return err
	}
	fixed, ferr := c.autofix(ctx, data, jerr.Messages)
	if ferr != nil {
		return fmt.Errorf("%w (autofix: %v)", err, ferr)
	}
	if !fixed {
		return err
	}
	return c.call(ctx, http.MethodPut, u, params, data, nil)
}

var (
	userNotFoundExp = regexp.MustCompile(`^User '(.*)' was not found in the system\.`)
	userMissingExp  = regexp.MustCompile(`^User '(.*)' does not exist\.`)
)

// autofix repairs data in response to the messages of a rejected update.
// It reports whether anything was changed.
func (c *Client) autofix(ctx context.Context, data map[string]any, messages []string) (bool, error) {
	logger := c.session().logger()
	fields, ok := data["fields"].(map[string]any)
	if !ok {
		fields = make(map[string]any)
		data["fields"] = fields
	}
	var fixed bool
	var orphan string
	for _, msg := range messages {
		switch msg {
		case "The reporter specified is not a user.":
			if _, ok := fields["reporter"]; !ok {
				logger.Warn("autofix: setting reporter", "user", c.Autofix)
				fields["reporter"] = map[string]any{"name": c.Autofix}
				fixed = true
			}
		case "Issues must be assigned.":
			if _, ok := fields["assignee"]; !ok {
				logger.Warn("autofix: setting assignee", "user", c.Autofix)
				fields["assignee"] = map[string]any{"name": c.Autofix}
				fixed = true
			}
		case "Issue type is a sub-task but parent issue key or id not specified.":
			logger.Warn("autofix: converting sub-task without parent to bug")
			fields["issuetype"] = map[string]any{"name": "Bug"}
			fixed = true
		case "The summary is invalid because it contains newline characters.":
			if s, ok := fields["summary"].(string); ok {
				logger.Warn("autofix: removing newlines from summary")
				fields["summary"] = strings.NewReplacer("\r", "", "\n", "").Replace(s)
				fixed = true
			}
		}
		if m := userNotFoundExp.FindStringSubmatch(msg); m != nil {
			orphan = m[1]
		} else if m := userMissingExp.FindStringSubmatch(msg); m != nil {
			orphan = m[1]
		}
	}
	if orphan != "" {
		logger.Warn("autofix: creating missing user", "user", orphan)
		opts := UserOptions{Name: orphan, Email: "noreply@example.com", DisplayName: orphan}
		if _, err := c.AddUser(ctx, opts); err != nil {
			return fixed, fmt.Errorf("add user %s: %w", orphan, err)
		}
		fixed = true
	}
	return fixed, nil
}

func (c *Client) reload(ctx context.Context, u string, out any) error {
	if err := sleep(ctx, c.DelayReload); err != nil {
		return err
	}
	return c.get(ctx, u, nil, out)
}

// ServerInfo describes a Jira instance.
type ServerInfo struct {
	BaseURL        string `json:"baseUrl"`
	Version        string `json:"version"`
	VersionNumbers []int  `json:"versionNumbers"`
	DeploymentType string `json:"deploymentType"`
	BuildNumber    int    `json:"buildNumber"`
	ServerTitle    string `json:"serverTitle"`
}

func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.get(ctx, c.url(apiREST, "serverInfo"), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
