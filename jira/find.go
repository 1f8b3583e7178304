package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type location struct {
	api  api
	path string // {0}, {1}... are replaced by IDs
}

var kindPaths = map[Kind]location{
	KindAttachment:               {apiREST, "attachment/{0}"},
	KindBoard:                    {apiAgile, "board/{0}"},
	KindComment:                  {apiREST, "issue/{0}/comment/{1}"},
	KindComponent:                {apiREST, "component/{0}"},
	KindCustomFieldOption:        {apiREST, "customFieldOption/{0}"},
	KindDashboard:                {apiREST, "dashboard/{0}"},
	KindDashboardGadget:          {apiREST, "dashboard/{0}/gadget/{1}"},
	KindDashboardItemProperty:    {apiREST, "dashboard/{0}/items/{1}/properties/{2}"},
	KindDashboardItemPropertyKey: {apiREST, "dashboard/{0}/items/{1}/properties"},
	KindFilter:                   {apiREST, "filter/{0}"},
	KindGroup:                    {apiREST, "group?groupname={0}"},
	KindIssue:                    {apiREST, "issue/{0}"},
	KindIssueLink:                {apiREST, "issueLink/{0}"},
	KindIssueLinkType:            {apiREST, "issueLinkType/{0}"},
	KindIssueProperty:            {apiREST, "issue/{0}/properties/{1}"},
	KindIssueSecurityLevelScheme: {apiREST, "project/{0}/issuesecuritylevelscheme"},
	KindIssueType:                {apiREST, "issuetype/{0}"},
	KindIssueTypeScheme:          {apiREST, "issuetypescheme/{0}"},
	KindNotificationScheme:       {apiREST, "project/{0}/notificationscheme"},
	KindPermissionScheme:         {apiREST, "project/{0}/permissionscheme"},
	KindPinnedComment:            {apiREST, "issue/{0}/pinned-comments"},
	KindPriority:                 {apiREST, "priority/{0}"},
	KindPriorityScheme:           {apiREST, "project/{0}/priorityscheme"},
	KindProject:                  {apiREST, "project/{0}"},
	KindRemoteLink:               {apiREST, "issue/{0}/remotelink/{1}"},
	KindRequestType:              {apiServiceDesk, "servicedesk/{0}/requesttype/{1}"},
	KindResolution:               {apiREST, "resolution/{0}"},
	KindRole:                     {apiREST, "project/{0}/role/{1}"},
	KindSecurityLevel:            {apiREST, "securitylevel/{0}"},
	KindServiceDesk:              {apiServiceDesk, "servicedesk/{0}"},
	KindSprint:                   {apiAgile, "sprint/{0}"},
	KindStatus:                   {apiREST, "status/{0}"},
	KindStatusCategory:           {apiREST, "statuscategory/{0}"},
	KindVersion:                  {apiREST, "version/{0}"},
	KindVotes:                    {apiREST, "issue/{0}/votes"},
	KindWatchers:                 {apiREST, "issue/{0}/watchers"},
	KindWorkflowScheme:           {apiREST, "project/{0}/workflowscheme"},
	KindWorklog:                  {apiREST, "issue/{0}/worklog/{1}"},
}

// ParseKind returns the addressable kind named s, ignoring case.
func ParseKind(s string) (Kind, bool) {
	if strings.EqualFold(s, string(KindUser)) {
		return KindUser, true
	}
	for k := range kindPaths {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return KindUnknown, false
}

// ResourceURL returns the REST URL of the resource of the given kind
// identified by ids, such as an issue key followed by a comment ID.
func (c *Client) ResourceURL(kind Kind, ids ...string) (string, error) {
	if kind == KindUser {
		if len(ids) != 1 {
			return "", fmt.Errorf("%s: want 1 id, got %d", kind, len(ids))
		}
		return c.url(apiREST, "user?"+c.userParams(ids[0]).Encode()), nil
	}
	loc, ok := kindPaths[kind]
	if !ok {
		return "", fmt.Errorf("%s: not addressable by id", kind)
	}
	var want int
	for strings.Contains(loc.path, "{"+strconv.Itoa(want)+"}") {
		want++
	}
	if len(ids) != want {
		return "", fmt.Errorf("%s: want %d ids, got %d", kind, want, len(ids))
	}
	p := loc.path
	for i, id := range ids {
		if strings.Contains(p, "?") {
			id = url.QueryEscape(id)
		}
		p = strings.ReplaceAll(p, "{"+strconv.Itoa(i)+"}", id)
	}
	return c.url(loc.api, p), nil
}

// Find fetches the resource of the given kind identified by ids.
func (c *Client) Find(ctx context.Context, kind Kind, ids ...string) (*Resource, error) {
	u, err := c.ResourceURL(kind, ids...)
	if err != nil {
		return nil, err
	}
	r := &Resource{}
	if err := c.get(ctx, u, nil, r); err != nil {
		return nil, err
	}
	if r.Self == "" {
		r.Self = u
	}
	r.Kind = kind
	return r, nil
}

// Reload fetches the current state of r from its self URL.
func (c *Client) Reload(ctx context.Context, r *Resource) error {
	if r.Self == "" {
		return fmt.Errorf("reload %s: no self url", r.Kind)
	}
	fresh := &Resource{}
	if err := c.get(ctx, rebase(r.Self, c.Server), nil, fresh); err != nil {
		return err
	}
	self, kind := r.Self, r.Kind
	*r = *fresh
	if r.Self == "" {
		r.Self = self
	}
	if kind != "" && kind != KindUnknown {
		r.Kind = kind
	}
	return nil
}

// UpdateResource sends data to the self URL of r with PUT then reloads r.
func (c *Client) UpdateResource(ctx context.Context, r *Resource, data map[string]any) error {
	if r.Self == "" {
		return fmt.Errorf("update %s: no self url", r.Kind)
	}
	if err := c.update(ctx, rebase(r.Self, c.Server), data, true); err != nil {
		return err
	}
	if err := sleep(ctx, c.DelayReload); err != nil {
		return err
	}
	return c.Reload(ctx, r)
}

// DeleteResource deletes r by its self URL.
func (c *Client) DeleteResource(ctx context.Context, r *Resource, params url.Values) error {
	if r.Self == "" {
		return fmt.Errorf("delete %s: no self url", r.Kind)
	}
	return c.call(ctx, http.MethodDelete, rebase(r.Self, c.Server), params, nil, nil)
}
