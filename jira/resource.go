package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Kind identifies the class of a REST resource.
type Kind string

const (
	KindUnknown                  Kind = "Unknown"
	KindPropertyHolder           Kind = "PropertyHolder"
	KindAttachment               Kind = "Attachment"
	KindBoard                    Kind = "Board"
	KindComment                  Kind = "Comment"
	KindComponent                Kind = "Component"
	KindCustomer                 Kind = "Customer"
	KindCustomFieldOption        Kind = "CustomFieldOption"
	KindDashboard                Kind = "Dashboard"
	KindDashboardGadget          Kind = "DashboardGadget"
	KindDashboardItemProperty    Kind = "DashboardItemProperty"
	KindDashboardItemPropertyKey Kind = "DashboardItemPropertyKey"
	KindField                    Kind = "Field"
	KindFilter                   Kind = "Filter"
	KindGroup                    Kind = "Group"
	KindIssue                    Kind = "Issue"
	KindIssueLink                Kind = "IssueLink"
	KindIssueLinkType            Kind = "IssueLinkType"
	KindIssueProperty            Kind = "IssueProperty"
	KindIssueSecurityLevelScheme Kind = "IssueSecurityLevelScheme"
	KindIssueType                Kind = "IssueType"
	KindIssueTypeScheme          Kind = "IssueTypeScheme"
	KindNotificationScheme       Kind = "NotificationScheme"
	KindPermissionScheme         Kind = "PermissionScheme"
	KindPinnedComment            Kind = "PinnedComment"
	KindPriority                 Kind = "Priority"
	KindPriorityScheme           Kind = "PriorityScheme"
	KindProject                  Kind = "Project"
	KindRemoteLink               Kind = "RemoteLink"
	KindRequestType              Kind = "RequestType"
	KindResolution               Kind = "Resolution"
	KindRole                     Kind = "Role"
	KindSecurityLevel            Kind = "SecurityLevel"
	KindServiceDesk              Kind = "ServiceDesk"
	KindSprint                   Kind = "Sprint"
	KindStatus                   Kind = "Status"
	KindStatusCategory           Kind = "StatusCategory"
	KindTimeTracking             Kind = "TimeTracking"
	KindUser                     Kind = "User"
	KindVersion                  Kind = "Version"
	KindVotes                    Kind = "Votes"
	KindWatchers                 Kind = "Watchers"
	KindWorkflowScheme           Kind = "WorkflowScheme"
	KindWorklog                  Kind = "Worklog"
)

// kindPatterns classifies self URLs. Order matters: the first match wins.
var kindPatterns = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`attachment/[^/]+$`), KindAttachment},
	{regexp.MustCompile(`component/[^/]+$`), KindComponent},
	{regexp.MustCompile(`customFieldOption/[^/]+$`), KindCustomFieldOption},
	{regexp.MustCompile(`dashboard/[^/]+$`), KindDashboard},
	{regexp.MustCompile(`dashboard/[^/]+/items/[^/]+/properties$`), KindDashboardItemPropertyKey},
	{regexp.MustCompile(`dashboard/[^/]+/items/[^/]+/properties/[^/]+$`), KindDashboardItemProperty},
	{regexp.MustCompile(`dashboard/[^/]+/gadget/[^/]+$`), KindDashboardGadget},
	{regexp.MustCompile(`filter/[^/]+$`), KindFilter},
	{regexp.MustCompile(`issue/[^/]+$`), KindIssue},
	{regexp.MustCompile(`issue/[^/]+/comment/[^/]+$`), KindComment},
	{regexp.MustCompile(`issue/[^/]+/pinned-comments$`), KindPinnedComment},
	{regexp.MustCompile(`issue/[^/]+/votes$`), KindVotes},
	{regexp.MustCompile(`issue/[^/]+/watchers$`), KindWatchers},
	{regexp.MustCompile(`issue/[^/]+/worklog/[^/]+$`), KindWorklog},
	{regexp.MustCompile(`issue/[^/]+/properties/[^/]+$`), KindIssueProperty},
	{regexp.MustCompile(`issue/[^/]+/remotelink/[^/]+$`), KindRemoteLink},
	{regexp.MustCompile(`issueLink/[^/]+$`), KindIssueLink},
	{regexp.MustCompile(`issueLinkType/[^/]+$`), KindIssueLinkType},
	{regexp.MustCompile(`issuetype/[^/]+$`), KindIssueType},
	{regexp.MustCompile(`issuetypescheme/[^/]+$`), KindIssueTypeScheme},
	{regexp.MustCompile(`project/[^/]+/issuesecuritylevelscheme[^/]*$`), KindIssueSecurityLevelScheme},
	{regexp.MustCompile(`project/[^/]+/notificationscheme[^/]*$`), KindNotificationScheme},
	{regexp.MustCompile(`project/[^/]+/priorityscheme[^/]*$`), KindPriorityScheme},
	{regexp.MustCompile(`priority/[^/]+$`), KindPriority},
	{regexp.MustCompile(`project/[^/]+$`), KindProject},
	{regexp.MustCompile(`project/[^/]+/role/[^/]+$`), KindRole},
	{regexp.MustCompile(`project/[^/]+/permissionscheme[^/]*$`), KindPermissionScheme},
	{regexp.MustCompile(`project/[^/]+/workflowscheme[^/]*$`), KindWorkflowScheme},
	{regexp.MustCompile(`resolution/[^/]+$`), KindResolution},
	{regexp.MustCompile(`securitylevel/[^/]+$`), KindSecurityLevel},
	{regexp.MustCompile(`status/[^/]+$`), KindStatus},
	{regexp.MustCompile(`statuscategory/[^/]+$`), KindStatusCategory},
	{regexp.MustCompile(`user\?(username|key|accountId).+$`), KindUser},
	{regexp.MustCompile(`group\?groupname.+$`), KindGroup},
	{regexp.MustCompile(`version/[^/]+$`), KindVersion},
	{regexp.MustCompile(`sprints?/[^/]+$`), KindSprint},
	{regexp.MustCompile(`(views|board)/[^/]+$`), KindBoard},
	{regexp.MustCompile(`servicedesk/[^/]+/requesttype/[^/]+$`), KindRequestType},
	{regexp.MustCompile(`servicedesk/[^/]+$`), KindServiceDesk},
	{regexp.MustCompile(`customer/[^/]+$`), KindCustomer},
}

// KindFor classifies a resource by its self URL.
func KindFor(self string) Kind {
	for _, p := range kindPatterns {
		if p.re.MatchString(self) {
			return p.kind
		}
	}
	return KindUnknown
}

// A Resource is a URL-addressable object of the Jira REST API.
// Typed resources such as Issue embed a Resource
// so the complete JSON document remains available in Raw.
type Resource struct {
	Self string         `json:"self,omitempty"`
	Raw  map[string]any `json:"-"`
	Kind Kind           `json:"-"`
}

func (r *Resource) base() *Resource { return r }

type resource interface {
	base() *Resource
}

var errEmptyResource = errors.New("empty resource")

// readableKeys are the keys most likely to hold a human readable name, in order.
var readableKeys = []string{
	"displayName",
	"key",
	"name",
	"accountId",
	"filename",
	"value",
	"scope",
	"votes",
	"id",
	"mimeType",
	"closed",
}

// identityKeys together identify a resource.
var identityKeys = []string{"self", "type", "key", "id", "name"}

func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	for _, k := range readableKeys {
		v, ok := r.Raw[k]
		if !ok {
			continue
		}
		s := fmt.Sprint(v)
		// nested select fields
		if child := r.Nested("child"); child != nil {
			s += " - " + child.String()
		}
		return s
	}
	return fmt.Sprintf("<JIRA %s>", r.Kind)
}

// Equal reports whether r and other are the same resource,
// comparing those identity keys (self, type, key, id, name) present in either.
func (r *Resource) Equal(other *Resource) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Kind != other.Kind {
		return false
	}
	for _, k := range identityKeys {
		a, aok := r.Raw[k]
		b, bok := other.Raw[k]
		if aok != bok {
			return false
		}
		if aok && !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// Nested returns the object stored at key as a Resource,
// or nil if there is no object at key.
// The nested resource's Kind is derived from its own self URL.
func (r *Resource) Nested(key string) *Resource {
	m, ok := r.Raw[key].(map[string]any)
	if !ok {
		return nil
	}
	return nested(key, m)
}

// Items returns the objects in the list stored at key.
// Elements which are not objects are skipped.
func (r *Resource) Items(key string) []*Resource {
	list, ok := r.Raw[key].([]any)
	if !ok {
		return nil
	}
	var items []*Resource
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			items = append(items, nested(key, m))
		}
	}
	return items
}

func nested(key string, m map[string]any) *Resource {
	n := &Resource{Raw: m, Kind: KindPropertyHolder}
	if self, ok := m["self"].(string); ok {
		n.Self = self
		n.Kind = KindFor(self)
	} else if key == "timetracking" {
		n.Kind = KindTimeTracking
	}
	return n
}

// Lookup evaluates the JSONPath expression expr, such as "$.fields.status.name",
// against the resource's raw document.
func (r *Resource) Lookup(expr string) (any, error) {
	v, err := jsonpath.Get(expr, map[string]any(r.Raw))
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", expr, err)
	}
	return v, nil
}

// decode unmarshals b into v and records the raw document.
// If kind is empty it is derived from the self URL.
func decode(b []byte, kind Kind, v resource) error {
	if err := json.Unmarshal(b, v); err != nil {
		return err
	}
	r := v.base()
	if err := json.Unmarshal(b, &r.Raw); err != nil {
		return err
	}
	if len(r.Raw) == 0 {
		return errEmptyResource
	}
	if r.Self == "" {
		if self, ok := r.Raw["self"].(string); ok {
			r.Self = self
		}
	}
	if kind == "" {
		kind = KindFor(r.Self)
	}
	r.Kind = kind
	return nil
}

// decodeList decodes each element of raw as a T.
func decodeList[T any, P interface {
	*T
	resource
}](raw []json.RawMessage, kind Kind) ([]T, error) {
	list := make([]T, len(raw))
	for i := range raw {
		if err := decode(raw[i], kind, P(&list[i])); err != nil {
			return nil, fmt.Errorf("decode %s %d: %w", strings.ToLower(string(kind)), i, err)
		}
	}
	return list, nil
}

// rebase replaces the scheme and host of self with those of server.
// Jira behind a proxy often reports its internal address in self URLs.
func rebase(self string, server *url.URL) string {
	u, err := url.Parse(self)
	if err != nil || server == nil || u.Host == "" {
		return self
	}
	if u.Host == server.Host {
		return self
	}
	u.Scheme = server.Scheme
	u.Host = server.Host
	return u.String()
}
