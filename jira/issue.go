package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"
)

const timestamp = "2006-01-02T15:04:05.999-0700"

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timestamp, s)
}

type Issue struct {
	Resource
	ID          string
	Key         string
	Summary     string
	Description string
	Status      Status
	Type        IssueType
	Priority    Priority
	Resolution  Resolution
	Project     Project
	Reporter    User
	Assignee    User
	Labels      []string
	Created     time.Time
	Updated     time.Time
	Comments    []Comment
	Links       []IssueLink
	Subtasks    []Issue
	Attachments []Attachment
}

func (issue *Issue) UnmarshalJSON(b []byte) error {
	aux := &struct {
		ID     string
		Self   string
		Key    string
		Fields json.RawMessage
	}{}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	issue.ID = aux.ID
	issue.Self = aux.Self
	issue.Key = aux.Key
	if len(aux.Fields) == 0 {
		return nil
	}

	iaux := &struct {
		Summary     string
		Description string
		Status      Status
		IssueType   IssueType `json:"issuetype"`
		Priority    Priority
		Resolution  Resolution
		Project     Project
		Reporter    User
		Assignee    User
		Labels      []string
		Created     string
		Updated     string
		Comment     map[string]json.RawMessage
		IssueLinks  []IssueLink `json:"issuelinks"`
		Subtasks    []Issue
		Attachment  []Attachment
	}{}
	if err := json.Unmarshal(aux.Fields, iaux); err != nil {
		return err
	}
	issue.Summary = iaux.Summary
	issue.Description = iaux.Description
	issue.Status = iaux.Status
	issue.Type = iaux.IssueType
	issue.Priority = iaux.Priority
	issue.Resolution = iaux.Resolution
	issue.Project = iaux.Project
	issue.Reporter = iaux.Reporter
	issue.Assignee = iaux.Assignee
	issue.Labels = iaux.Labels
	issue.Links = iaux.IssueLinks
	issue.Subtasks = iaux.Subtasks
	issue.Attachments = iaux.Attachment

	var err error
	issue.Created, err = parseTime(iaux.Created)
	if err != nil {
		return fmt.Errorf("created time: %w", err)
	}
	issue.Updated, err = parseTime(iaux.Updated)
	if err != nil {
		return fmt.Errorf("updated time: %w", err)
	}
	if bb, ok := iaux.Comment["comments"]; ok {
		if err := json.Unmarshal(bb, &issue.Comments); err != nil {
			return fmt.Errorf("unmarshal comments: %w", err)
		}
	}

	// Give the embedded resources their raw documents too.
	var fields map[string]any
	if err := json.Unmarshal(aux.Fields, &fields); err != nil {
		return err
	}
	attach(&issue.Status.Resource, fields["status"])
	attach(&issue.Type.Resource, fields["issuetype"])
	attach(&issue.Priority.Resource, fields["priority"])
	attach(&issue.Resolution.Resource, fields["resolution"])
	attach(&issue.Project.Resource, fields["project"])
	attach(&issue.Reporter.Resource, fields["reporter"])
	attach(&issue.Assignee.Resource, fields["assignee"])
	if cm, ok := fields["comment"].(map[string]any); ok {
		attachList(issue.Comments, cm["comments"], func(c *Comment) *Resource { return &c.Resource })
	}
	attachList(issue.Links, fields["issuelinks"], func(l *IssueLink) *Resource { return &l.Resource })
	attachList(issue.Attachments, fields["attachment"], func(a *Attachment) *Resource { return &a.Resource })
	return nil
}

func attach(r *Resource, v any) {
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	r.Raw = m
	if self, ok := m["self"].(string); ok {
		r.Self = self
	}
	r.Kind = KindFor(r.Self)
}

func attachList[T any](list []T, v any, res func(*T) *Resource) {
	raw, ok := v.([]any)
	if !ok || len(raw) != len(list) {
		return
	}
	for i := range list {
		attach(res(&list[i]), raw[i])
	}
}

// Field returns the raw value of the named field, including custom fields
// such as "customfield_10010".
func (issue *Issue) Field(name string) (any, error) {
	if strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("field name %q: cannot start with underscore", name)
	}
	fields, _ := issue.Raw["fields"].(map[string]any)
	v, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("no field %q", name)
	}
	return v, nil
}

// IssueOptions restricts or expands the representation of fetched issues.
type IssueOptions struct {
	Fields []string
	Expand []string
}

func (o *IssueOptions) params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if len(o.Fields) > 0 {
		q.Set("fields", strings.Join(o.Fields, ","))
	}
	if len(o.Expand) > 0 {
		q.Set("expand", strings.Join(o.Expand, ","))
	}
	return q
}

func (c *Client) Issue(ctx context.Context, key string, opts *IssueOptions) (*Issue, error) {
	var issue Issue
	if err := c.get(ctx, c.url(apiREST, "issue/"+key), opts.params(), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CheckIssue reports whether the issue key exists.
func (c *Client) CheckIssue(ctx context.Context, key string) (bool, error) {
	return c.exists(ctx, c.url(apiREST, "issue/"+key))
}

// CreateIssue creates an issue from fields, such as
//
//	map[string]any{
//		"project":   map[string]any{"key": "TEST"},
//		"summary":   "something broke",
//		"issuetype": map[string]any{"name": "Bug"},
//	}
//
// and returns the new issue as stored by the server.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*Issue, error) {
	var created struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Self string `json:"self"`
	}
	body := map[string]any{"fields": fields}
	if err := c.call(ctx, http.MethodPost, c.url(apiREST, "issue"), nil, body, &created); err != nil {
		return nil, err
	}
	u := c.url(apiREST, "issue/"+created.Key)
	if created.Self != "" {
		u = rebase(created.Self, c.Server)
	}
	var issue Issue
	if err := c.reload(ctx, u, &issue); err != nil {
		return nil, fmt.Errorf("load created issue %s: %w", created.Key, err)
	}
	return &issue, nil
}

// IssueUpdate describes changes to an issue.
type IssueUpdate struct {
	// Fields are set to the given values.
	Fields map[string]any
	// Update holds field operations, such as
	// {"labels": [{"add": "triaged"}]}.
	Update map[string]any
	// Values are shorthand changes merged into Fields and Update.
	// Strings set the field, except that "assignee" and "reporter" name a user
	// and "comment" adds a comment.
	// Slices are appended to the field's update operations.
	// Other values set the field.
	Values map[string]any
	// Quiet suppresses notifications to watchers.
	// It requires administrator permissions.
	Quiet bool
}

func (u IssueUpdate) payload() map[string]any {
	fields := make(map[string]any)
	for k, v := range u.Fields {
		fields[k] = v
	}
	update := make(map[string]any)
	for k, v := range u.Update {
		update[k] = v
	}

	keys := make([]string, 0, len(u.Values))
	for k := range u.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := u.Values[k]
		switch {
		case k == "comment" && isString(v):
			update[k] = append(operations(update[k]), map[string]any{"add": map[string]any{"body": v}})
		case (k == "assignee" || k == "reporter") && isString(v):
			fields[k] = map[string]any{"name": v}
		case isSlice(v):
			update[k] = append(operations(update[k]), operations(v)...)
		default:
			fields[k] = v
		}
	}
	return map[string]any{"fields": fields, "update": update}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}

// operations copies the elements of a slice of any element type into a []any.
// Anything other than a slice is dropped.
func operations(v any) []any {
	if ops, ok := v.([]any); ok {
		return append([]any(nil), ops...)
	}
	if !isSlice(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	ops := make([]any, rv.Len())
	for i := range ops {
		ops[i] = rv.Index(i).Interface()
	}
	return ops
}

// UpdateIssue applies upd to the issue key and returns the reloaded issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, upd IssueUpdate) (*Issue, error) {
	u := c.url(apiREST, "issue/"+key)
	if err := c.update(ctx, u, upd.payload(), !upd.Quiet); err != nil {
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	var issue Issue
	if err := c.reload(ctx, u, &issue); err != nil {
		return nil, fmt.Errorf("reload %s: %w", key, err)
	}
	return &issue, nil
}

// AddFieldValue adds value to a multi-valued field such as labels
// without resetting existing values.
func (c *Client) AddFieldValue(ctx context.Context, key, field string, value any) error {
	data := map[string]any{
		"update": map[string]any{
			field: []any{map[string]any{"add": value}},
		},
	}
	return c.update(ctx, c.url(apiREST, "issue/"+key), data, true)
}

// DeleteIssue deletes the issue key.
// Unless deleteSubtasks is set, an issue with subtasks is not deleted.
func (c *Client) DeleteIssue(ctx context.Context, key string, deleteSubtasks bool) error {
	q := url.Values{"deleteSubtasks": {fmt.Sprint(deleteSubtasks)}}
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key), q, nil, nil)
}

// AssignIssue assigns the issue key to user.
// An empty user unassigns the issue.
func (c *Client) AssignIssue(ctx context.Context, key, user string) error {
	body := map[string]any{"name": user}
	if c.Cloud {
		body = map[string]any{"accountId": user}
	}
	if user == "" {
		body = map[string]any{"name": nil}
		if c.Cloud {
			body = map[string]any{"accountId": nil}
		}
	}
	return c.call(ctx, http.MethodPut, c.url(apiREST, "issue/"+key+"/assignee"), nil, body, nil)
}

type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"to"`
}

func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	var t struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/transitions"), nil, &t); err != nil {
		return nil, err
	}
	return t.Transitions, nil
}

// TransitionIssue moves the issue key through a workflow transition,
// identified by ID or by name, optionally setting fields.
func (c *Client) TransitionIssue(ctx context.Context, key, transition string, fields map[string]any) error {
	id := transition
	if !isNumeric(transition) {
		tt, err := c.Transitions(ctx, key)
		if err != nil {
			return fmt.Errorf("list transitions: %w", err)
		}
		id = ""
		for _, t := range tt {
			if strings.EqualFold(t.Name, transition) {
				id = t.ID
				break
			}
		}
		if id == "" {
			return fmt.Errorf("issue %s: no transition named %q", key, transition)
		}
	}
	body := map[string]any{"transition": map[string]any{"id": id}}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return c.call(ctx, http.MethodPost, c.url(apiREST, "issue/"+key+"/transitions"), nil, body, nil)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
