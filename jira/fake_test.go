package jira

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"testing"
)

const apiRoot = "/rest/api/2"

// newFakeServer returns a fake Jira server which serves projects,
// issues, and comments from the filesystem tree rooted at root.
// For an example tree, see the testdata directory.
//
// The server provides a limited read-only subset of the Jira HTTP API
// intended for testing API clients.
// All search requests return a list of every issue, even if the JQL query is invalid.
// Paginated responses are not supported.
func newFakeServer(root string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(apiRoot+"/project", serveJSONList(path.Join(root, "project")))
	mux.HandleFunc(apiRoot+"/search", serveJSONList(path.Join(root, "issue")))
	mux.HandleFunc(apiRoot+"/issue/", handleIssues(root))
	mux.Handle(apiRoot+"/", http.StripPrefix(apiRoot, http.FileServer(http.Dir(root))))
	return httptest.NewServer(mux)
}

func serveJSONList(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		prefix, suffix := "[", "]"
		if path.Base(dir) == "issue" {
			prefix, suffix = `{"issues": [`, "]}"
		}
		dirs, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, req)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, prefix)
		for i, d := range dirs {
			f, err := os.Open(path.Join(dir, d.Name()))
			if err != nil {
				log.Println(err)
				return
			}
			if _, err := io.Copy(w, f); err != nil {
				log.Printf("copy %s: %v", f.Name(), err)
			}
			f.Close()
			if i == len(dirs)-1 {
				break
			}
			fmt.Fprintln(w, ",")
		}
		fmt.Fprintln(w, suffix)
	}
}

func handleIssues(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p := req.URL.Path[len(apiRoot):]
		if match, _ := path.Match("/issue/*/comment/*", p); match {
			// ignore error; we know pattern is ok.
			file := path.Base(p)
			http.ServeFile(w, req, path.Join(dir, "comment", file))
			return
		}
		if match, _ := path.Match("/issue/*", p); !match {
			http.NotFound(w, req)
			return
		}
		req.URL.Path = p
		http.FileServerFS(os.DirFS(dir)).ServeHTTP(w, req)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return &Client{Server: u, HTTPClient: srv.Client(), MaxRetryDelay: -1}
}
