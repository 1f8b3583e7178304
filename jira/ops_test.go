package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestAttachment(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/issue/TEST-1/attachments", func(w http.ResponseWriter, req *http.Request) {
		f, hdr, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		fmt.Fprintf(w, `[{
			"self": "%[1]s/rest/api/2/attachment/10000",
			"id": "10000",
			"filename": %[2]q,
			"size": %[3]d,
			"created": "2026-10-17T09:30:00.000+0000",
			"content": "http://10.0.0.7:8080/secure/attachment/10000/%[2]s"
		}]`, srv.URL, hdr.Filename, len(b))
	})
	mux.HandleFunc("GET /secure/attachment/10000/{name}", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Accept") != "*/*" {
			http.Error(w, "not acceptable", http.StatusNotAcceptable)
			return
		}
		io.WriteString(w, "lp0 on fire\n")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	added, err := client.AddAttachment(ctx, "TEST-1", "dmesg.txt", strings.NewReader("lp0 on fire\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 {
		t.Fatalf("got %d attachments, want 1", len(added))
	}
	a := added[0]
	if a.Filename != "dmesg.txt" || a.Size != 12 || a.Kind != KindAttachment {
		t.Errorf("unexpected attachment %+v", a)
	}
	if want := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC); !a.Created.Equal(want) {
		t.Errorf("created %v, want %v", a.Created, want)
	}
	rc, err := client.AttachmentContent(ctx, &a)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "lp0 on fire\n" {
		t.Errorf("content = %q", b)
	}
}

func TestDashboardItemProperty(t *testing.T) {
	var stored map[string]any
	const path = "/rest/api/2/dashboard/10000/items/1/properties/config"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != path {
			http.NotFound(w, req)
			return
		}
		switch req.Method {
		case http.MethodGet:
			if stored == nil {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"errorMessages": ["no property"]}`)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"key": "config", "value": stored})
		case http.MethodPut:
			json.NewDecoder(req.Body).Decode(&stored)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	if _, err := client.SetDashboardItemProperty(ctx, "10000", "1", "config", map[string]any{"filter": "10001"}); err != nil {
		t.Fatal(err)
	}
	p, err := client.SetDashboardItemProperty(ctx, "10000", "1", "config", map[string]any{"rows": 5.0})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"filter": "10001", "rows": 5.0}
	if diff := cmp.Diff(want, p.Value); diff != "" {
		t.Errorf("merged value mismatch (-want +got):\n%s", diff)
	}
	if p.Kind != KindDashboardItemProperty || !strings.HasSuffix(p.Self, path) {
		t.Errorf("property resource %s %s", p.Kind, p.Self)
	}
}

func TestSprints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/rest/agile/1.0/board/84/sprint" || req.URL.Query().Get("state") != "active" {
			http.NotFound(w, req)
			return
		}
		io.WriteString(w, `{"isLast": true, "values": [
			{"id": 23, "name": "Sprint 1", "state": "active", "startDate": "2026-10-12T09:00:00.000Z", "originBoardId": 84}
		]}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	sprints, err := client.Sprints(context.Background(), 84, "active")
	if err != nil {
		t.Fatal(err)
	}
	if len(sprints) != 1 {
		t.Fatalf("got %d sprints, want 1", len(sprints))
	}
	s := sprints[0]
	if s.ID != 23 || s.OriginBoardID != 84 || !s.End.IsZero() {
		t.Errorf("unexpected sprint %+v", s)
	}
	if want := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC); !s.Start.Equal(want) {
		t.Errorf("start %v, want %v", s.Start, want)
	}
}

func TestServiceDeskOptIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("X-ExperimentalApi") != "opt-in" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"errorMessage": "experimental api not enabled"}`)
			return
		}
		io.WriteString(w, `{"values": [{"id": "2", "projectKey": "HELP", "projectName": "Help desk"}]}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	desks, err := client.ServiceDesks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(desks) != 1 || desks[0].ProjectKey != "HELP" {
		t.Errorf("service desks = %+v", desks)
	}
}

func TestDeleteWorklog(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete || req.URL.Path != "/rest/api/2/issue/TEST-1/worklog/3" {
			http.NotFound(w, req)
			return
		}
		query = req.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	est := EstimateOptions{Adjust: "manual", IncreaseBy: "2h"}
	if err := client.DeleteWorklog(context.Background(), "TEST-1", "3", est); err != nil {
		t.Fatal(err)
	}
	if query != "adjustEstimate=manual&increaseBy=2h" {
		t.Errorf("query = %q", query)
	}
}

func TestMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/rest/api/2/status":
			io.WriteString(w, `[{
				"self": "http://jira.example.com/rest/api/2/status/3",
				"id": "3",
				"name": "In Progress",
				"statusCategory": {"id": 4, "key": "indeterminate", "colorName": "yellow"}
			}]`)
		case "/rest/api/2/issueLinkType":
			io.WriteString(w, `{"issueLinkTypes": [
				{"id": "10000", "name": "Blocks", "inward": "is blocked by", "outward": "blocks"}
			]}`)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	statuses, err := client.Statuses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Kind != KindStatus || statuses[0].Category.Key != "indeterminate" {
		t.Errorf("statuses = %+v", statuses)
	}
	types, err := client.IssueLinkTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0].Outward != "blocks" {
		t.Errorf("link types = %+v", types)
	}
}

func TestCreateIssueReload(t *testing.T) {
	var reloaded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.Method == http.MethodPost && req.URL.Path == "/rest/api/2/issue":
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": "10001", "key": "TEST-1", "self": "http://10.0.0.7:8080/rest/api/2/issue/10001"}`)
		case req.Method == http.MethodGet && strings.HasPrefix(req.URL.Path, "/rest/api/2/issue/"):
			reloaded = req.URL.Path
			io.WriteString(w, `{"id": "10001", "key": "TEST-1", "self": "http://10.0.0.7:8080/rest/api/2/issue/10001", "fields": {"summary": "Printer on fire"}}`)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	issue, err := client.CreateIssue(context.Background(), map[string]any{
		"project":   map[string]any{"key": "TEST"},
		"summary":   "Printer on fire",
		"issuetype": map[string]any{"name": "Bug"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reloaded != "/rest/api/2/issue/10001" {
		t.Errorf("reloaded from %q, want the self URL of the created issue", reloaded)
	}
	if issue.Key != "TEST-1" || issue.Summary != "Printer on fire" {
		t.Errorf("created issue %s %q", issue.Key, issue.Summary)
	}
}

func TestAddUserExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.Method == http.MethodPost && req.URL.Path == "/rest/api/2/user":
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"errorMessages": [], "errors": {"username": "A user with that username already exists."}}`)
		case req.Method == http.MethodGet && req.URL.Path == "/rest/api/2/user" && req.URL.Query().Get("username") == "fixit":
			io.WriteString(w, `{"self": "http://jira.example.com/rest/api/2/user?username=fixit", "name": "fixit", "displayName": "Fix It"}`)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	opts := UserOptions{Name: "fixit", Email: "fixit@example.com", IgnoreExisting: true}
	u, err := client.AddUser(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "fixit" || u.DisplayName != "Fix It" || u.Kind != KindUser {
		t.Errorf("existing user = %+v", u)
	}

	opts.IgnoreExisting = false
	_, err = client.AddUser(ctx, opts)
	var jerr *Error
	if !errors.As(err, &jerr) || jerr.StatusCode != http.StatusBadRequest {
		t.Errorf("add existing user without IgnoreExisting: got %v", err)
	}
}

func TestIssuePropertySelf(t *testing.T) {
	const path = "/rest/api/2/issue/TEST-1/properties/triage"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != path {
			http.NotFound(w, req)
			return
		}
		io.WriteString(w, `{"key": "triage", "value": {"score": 3}}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	p, err := client.IssueProperty(context.Background(), "TEST-1", "triage")
	if err != nil {
		t.Fatal(err)
	}
	if p.Self != srv.URL+path {
		t.Errorf("self = %q, want %q", p.Self, srv.URL+path)
	}
	if p.Kind != KindIssueProperty || p.Key != "triage" {
		t.Errorf("property %s %s", p.Kind, p.Key)
	}
}

func TestDashboardsPaging(t *testing.T) {
	const pageSize = 2
	var starts, maxes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/rest/api/2/dashboard" {
			http.NotFound(w, req)
			return
		}
		q := req.URL.Query()
		starts = append(starts, q.Get("startAt"))
		maxes = append(maxes, q.Get("maxResults"))
		start, _ := strconv.Atoi(q.Get("startAt"))
		var dashboards []map[string]any
		for i := start; i < min(start+pageSize, 5); i++ {
			dashboards = append(dashboards, map[string]any{
				"id":   strconv.Itoa(10000 + i),
				"name": fmt.Sprintf("Dashboard %d", i),
				"self": fmt.Sprintf("http://jira.example.com/rest/api/2/dashboard/%d", 10000+i),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"startAt": start, "total": 5, "dashboards": dashboards})
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	dashboards, err := client.Dashboards(context.Background(), "", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, d := range dashboards {
		ids = append(ids, d.ID)
	}
	if diff := cmp.Diff([]string{"10001", "10002", "10003"}, ids); diff != "" {
		t.Errorf("dashboard ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "3"}, starts); diff != "" {
		t.Errorf("startAt sent (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3", "1"}, maxes); diff != "" {
		t.Errorf("maxResults sent (-want +got):\n%s", diff)
	}
}

func TestUpdateGadget(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut || req.URL.Path != "/rest/api/2/dashboard/10000/gadget/7" {
			http.NotFound(w, req)
			return
		}
		body = nil
		json.NewDecoder(req.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	if err := client.UpdateGadget(ctx, "10000", 7, GadgetUpdate{Color: "blue"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"color": "blue"}, body); diff != "" {
		t.Errorf("update body (-want +got):\n%s", diff)
	}
	upd := GadgetUpdate{Title: "Fires", Position: &Position{Row: 1, Column: 0}}
	if err := client.UpdateGadget(ctx, "10000", 7, upd); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"title":    "Fires",
		"position": map[string]any{"row": 1.0, "column": 0.0},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("update body (-want +got):\n%s", diff)
	}
}

func TestUpdateCommentVisibility(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut || req.URL.Path != "/rest/api/2/issue/TEST-1/comment/70" {
			http.NotFound(w, req)
			return
		}
		json.NewDecoder(req.Body).Decode(&body)
		io.WriteString(w, `{"self": "http://jira.example.com/rest/api/2/issue/10001/comment/70", "id": "70", "body": "Extinguisher applied."}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)
	opts := CommentOptions{Visibility: &Visibility{Type: "role", Value: "Administrators"}}
	if _, err := client.UpdateComment(context.Background(), "TEST-1", "70", "", opts); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["body"]; ok {
		t.Errorf("visibility change sent a body: %v", body)
	}
	want := map[string]any{"type": "role", "value": "Administrators"}
	if diff := cmp.Diff(want, body["visibility"]); diff != "" {
		t.Errorf("visibility (-want +got):\n%s", diff)
	}
}
