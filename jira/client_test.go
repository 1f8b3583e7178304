package jira

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGet(t *testing.T) {
	srv := newFakeServer("testdata")
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	project := "TEST"
	issue := "TEST-1"
	comment := "69"
	p, err := client.Project(ctx, project)
	if err != nil {
		t.Fatalf("get project %s: %v", project, err)
	}
	if p.Key != project || p.Kind != KindProject {
		t.Errorf("project %s: got key %q kind %s", project, p.Key, p.Kind)
	}
	if _, err := client.ProjectIssues(ctx, project); err != nil {
		t.Fatalf("get %s issues: %v", project, err)
	}
	is, err := client.Issue(ctx, issue, nil)
	if err != nil {
		t.Fatalf("get issue %s: %v", issue, err)
	}
	if is.Kind != KindIssue {
		t.Errorf("issue kind = %s, want %s", is.Kind, KindIssue)
	}
	c, err := client.Comment(ctx, issue, comment)
	if err != nil {
		t.Fatalf("get comment %s from %s: %v", comment, issue, err)
	}
	if c.ID != comment {
		t.Fatalf("wanted comment id %s, got %s", comment, c.ID)
	}

	ok, err := client.CheckIssue(ctx, "TEST-999")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("check nonexistent issue: got true")
	}
	_, err = client.Issue(ctx, "TEST-999", nil)
	if !IsNotFound(err) {
		t.Errorf("get nonexistent issue: want not found error, got %v", err)
	}
}

func TestURL(t *testing.T) {
	u, _ := url.Parse("https://example.com/jira")
	c := &Client{Server: u}
	tests := []struct {
		api  api
		path string
		want string
	}{
		{apiREST, "issue/TEST-1", "https://example.com/jira/rest/api/2/issue/TEST-1"},
		{apiREST, "group?groupname=jira-users", "https://example.com/jira/rest/api/2/group?groupname=jira-users"},
		{apiAgile, "board/1", "https://example.com/jira/rest/agile/1.0/board/1"},
		{apiServiceDesk, "servicedesk/2", "https://example.com/jira/rest/servicedeskapi/servicedesk/2"},
	}
	for _, tt := range tests {
		if got := c.url(tt.api, tt.path); got != tt.want {
			t.Errorf("url(%d, %q) = %q, want %q", tt.api, tt.path, got, tt.want)
		}
	}

	c = &Client{Server: u, RESTVersion: "latest", AgilePath: "greenhopper", AgileVersion: "1.0"}
	want := "https://example.com/jira/rest/api/latest/serverInfo"
	if got := c.url(apiREST, "serverInfo"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	want = "https://example.com/jira/rest/greenhopper/1.0/sprints/7"
	if got := c.url(apiAgile, "sprints/7"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	want = "https://example.com/jira/browse/TEST-1"
	if got := c.Permalink("TEST-1"); got != want {
		t.Errorf("permalink: got %q, want %q", got, want)
	}
}

func TestBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got = req.Header.Get("Authorization")
		io.WriteString(w, `{"version": "9.12.0", "deploymentType": "Server"}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	client.Username = "otl"
	client.Password = "hunter2"
	client.Token = "abc123"
	info, err := client.ServerInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != "9.12.0" {
		t.Errorf("version = %q, want %q", info.Version, "9.12.0")
	}
	if got != "Bearer abc123" {
		t.Errorf("authorization header = %q, want bearer token", got)
	}
}

func TestSearchPagination(t *testing.T) {
	const total = 7
	var mu sync.Mutex
	var starts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start, _ := strconv.Atoi(req.FormValue("startAt"))
		mu.Lock()
		starts = append(starts, start)
		mu.Unlock()
		if req.FormValue("jql") != "project = TEST" {
			http.Error(w, `{"errorMessages": ["bad jql"]}`, http.StatusBadRequest)
			return
		}
		// pages of at most 3, like a server with a low maxResults limit
		var issues []map[string]any
		for i := start; i < total && i < start+3; i++ {
			key := "TEST-" + strconv.Itoa(i+1)
			issues = append(issues, map[string]any{"key": key, "self": "http://jira.example.com/rest/api/2/issue/" + key})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"startAt": start,
			"total":   total,
			"issues":  issues,
		})
	}))
	defer srv.Close()
	client := newTestClient(t, srv)

	issues, err := client.SearchIssues(context.Background(), "project = TEST", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != total {
		t.Fatalf("got %d issues, want %d", len(issues), total)
	}
	if issues[6].Key != "TEST-7" {
		t.Errorf("last issue key = %q, want TEST-7", issues[6].Key)
	}
	if diff := cmp.Diff([]int{0, 3, 6}, starts); diff != "" {
		t.Errorf("requested pages (-want +got):\n%s", diff)
	}

	starts = nil
	issues, err = client.SearchIssues(context.Background(), "project = TEST", &SearchOptions{StartAt: 2, MaxResults: 4})
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, is := range issues {
		keys = append(keys, is.Key)
	}
	if diff := cmp.Diff([]string{"TEST-3", "TEST-4", "TEST-5", "TEST-6"}, keys); diff != "" {
		t.Errorf("limited search (-want +got):\n%s", diff)
	}

	_, err = client.SearchIssues(context.Background(), "project = NOPE", nil)
	var jerr *Error
	if !errors.As(err, &jerr) {
		t.Fatalf("bad query: want *Error, got %T %v", err, err)
	}
	if diff := cmp.Diff([]string{"bad jql"}, jerr.Messages); diff != "" {
		t.Errorf("error messages (-want +got):\n%s", diff)
	}
}

func TestAutofix(t *testing.T) {
	var mu sync.Mutex
	var puts []map[string]any
	var createdUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case req.Method == http.MethodPost && req.URL.Path == apiRoot+"/user":
			var body map[string]any
			json.NewDecoder(req.Body).Decode(&body)
			createdUser, _ = body["name"].(string)
			io.WriteString(w, `{"name": "ghost", "self": "http://jira.example.com/rest/api/2/user?username=ghost"}`)
		case req.Method == http.MethodPut:
			var body map[string]any
			json.NewDecoder(req.Body).Decode(&body)
			puts = append(puts, body)
			if len(puts) == 1 {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"errorMessages": ["Issues must be assigned.", "User 'ghost' does not exist."], "errors": {}}`)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case req.Method == http.MethodGet:
			io.WriteString(w, `{"key": "TEST-1", "self": "http://jira.example.com/rest/api/2/issue/10001", "fields": {"summary": "fixed"}}`)
		default:
			http.Error(w, "unexpected request", http.StatusTeapot)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	client.Autofix = "admin"

	upd := IssueUpdate{Fields: map[string]any{"summary": "fixed"}}
	issue, err := client.UpdateIssue(context.Background(), "TEST-1", upd)
	if err != nil {
		t.Fatal(err)
	}
	if issue.Summary != "fixed" {
		t.Errorf("summary = %q, want %q", issue.Summary, "fixed")
	}
	if len(puts) != 2 {
		t.Fatalf("got %d update attempts, want 2", len(puts))
	}
	if createdUser != "ghost" {
		t.Errorf("created user %q, want ghost", createdUser)
	}
	fields := puts[1]["fields"].(map[string]any)
	want := map[string]any{"name": "admin"}
	if diff := cmp.Diff(want, fields["assignee"]); diff != "" {
		t.Errorf("repaired assignee (-want +got):\n%s", diff)
	}

	// without autofix the first rejection is final
	mu.Lock()
	puts = nil
	mu.Unlock()
	client = newTestClient(t, srv)
	if _, err := client.UpdateIssue(context.Background(), "TEST-1", upd); err == nil {
		t.Error("update without autofix: want error, got nil")
	}
	if len(puts) != 1 {
		t.Errorf("got %d update attempts, want 1", len(puts))
	}
}

func TestUpdatePayload(t *testing.T) {
	upd := IssueUpdate{
		Fields: map[string]any{"priority": map[string]any{"name": "High"}},
		Update: map[string]any{"labels": []any{map[string]any{"add": "triaged"}}},
		Values: map[string]any{
			"assignee":    "fixit",
			"comment":     "on it",
			"summary":     "Printer on fire",
			"labels":      []any{map[string]any{"remove": "new"}},
			"components":  []string{"hardware"},
			"storyPoints": 3,
		},
	}
	want := map[string]any{
		"fields": map[string]any{
			"priority":    map[string]any{"name": "High"},
			"assignee":    map[string]any{"name": "fixit"},
			"summary":     "Printer on fire",
			"storyPoints": 3,
		},
		"update": map[string]any{
			"labels": []any{
				map[string]any{"add": "triaged"},
				map[string]any{"remove": "new"},
			},
			"comment":    []any{map[string]any{"add": map[string]any{"body": "on it"}}},
			"components": []any{"hardware"},
		},
	}
	if diff := cmp.Diff(want, upd.payload()); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}
}

func TestAutofixSummary(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	client := newTestClient(t, srv)
	data := map[string]any{"fields": map[string]any{"summary": "Printer\r\non fire"}}
	msgs := []string{"The summary is invalid because it contains newline characters."}
	fixed, err := client.autofix(context.Background(), data, msgs)
	if err != nil {
		t.Fatal(err)
	}
	if !fixed {
		t.Fatal("summary not fixed")
	}
	if got := data["fields"].(map[string]any)["summary"]; got != "Printeron fire" {
		t.Errorf("summary = %q, want newlines removed", got)
	}
}

func TestUpdatePayloadTypedSlices(t *testing.T) {
	upd := IssueUpdate{
		Update: map[string]any{
			"labels":  []map[string]any{{"add": "triaged"}},
			"comment": []map[string]any{{"add": map[string]any{"body": "first"}}},
		},
		Values: map[string]any{
			"labels":  []any{map[string]any{"add": "urgent"}},
			"comment": "second",
		},
	}
	want := map[string]any{
		"fields": map[string]any{},
		"update": map[string]any{
			"labels": []any{
				map[string]any{"add": "triaged"},
				map[string]any{"add": "urgent"},
			},
			"comment": []any{
				map[string]any{"add": map[string]any{"body": "first"}},
				map[string]any{"add": map[string]any{"body": "second"}},
			},
		},
	}
	if diff := cmp.Diff(want, upd.payload()); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}
	if n := len(upd.Update["labels"].([]map[string]any)); n != 1 {
		t.Errorf("caller's update modified: %d label operations", n)
	}
}

func TestQuietUpdate(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPut {
			query = req.URL.Query()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		io.WriteString(w, `{"key": "TEST-1"}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	if _, err := client.UpdateIssue(context.Background(), "TEST-1", IssueUpdate{Quiet: true}); err != nil {
		t.Fatal(err)
	}
	if query.Get("notifyUsers") != "false" {
		t.Errorf("notifyUsers = %q, want false", query.Get("notifyUsers"))
	}
}

func TestTransitionByName(t *testing.T) {
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			json.NewDecoder(req.Body).Decode(&posted)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		io.WriteString(w, `{"transitions": [{"id": "11", "name": "Start Progress"}, {"id": "31", "name": "Done"}]}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	if err := client.TransitionIssue(ctx, "TEST-1", "done", nil); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"transition": map[string]any{"id": "31"}}
	if diff := cmp.Diff(want, posted); diff != "" {
		t.Errorf("transition body (-want +got):\n%s", diff)
	}
	if err := client.TransitionIssue(ctx, "TEST-1", "Reopen", nil); err == nil {
		t.Error("unknown transition: want error, got nil")
	}
}

func TestAssignCloud(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	client.Cloud = true
	if err := client.AssignIssue(context.Background(), "TEST-1", "5b10ac8d82e05b22cc7d4ef5"); err != nil {
		t.Fatal(err)
	}
	if body["accountId"] != "5b10ac8d82e05b22cc7d4ef5" {
		t.Errorf("assign body = %v, want accountId", body)
	}

	body = nil
	if err := client.AssignIssue(context.Background(), "TEST-1", ""); err != nil {
		t.Fatal(err)
	}
	v, ok := body["accountId"]
	if !ok || v != nil || len(body) != 1 {
		t.Errorf("unassign body = %v, want null accountId", body)
	}
}
