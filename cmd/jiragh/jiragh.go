// Command jiragh links GitHub issues and pull requests to the Jira issues
// they mention. Each GitHub issue whose title or body contains a Jira issue key,
// such as TEST-1, is added to that Jira issue as a remote link.
// Running jiragh again updates existing links, for example when a pull request is closed.
//
// Usage:
//
//	jiragh [ -n ] [ -p owner/repo ] [ -token file ] [ -u url ] [ query ]
//
// The flags are:
//
//	-n
//		Print the links which would be made without changing Jira.
//	-p owner/repo
//		The GitHub repository to search. The default is golang/go.
//	-token file
//		Read the GitHub personal access token from file.
//		The default is $HOME/.github-issue-token.
//	-u url
//		The root URL of the Jira server.
//		The default is read from the configuration.
//
// The query is a GitHub issue search, by default "updated:>=" one week ago.
//
// # Example
//
// Link pull requests merged this year:
//
//	jiragh -p example/printer 'is:pr is:merged merged:>=2026-01-01'
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v63/github"
	"golang.org/x/oauth2"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/jira"
)

var keyExp = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-[0-9]+\b`)

// mentions returns the distinct Jira issue keys in text, in order of appearance.
func mentions(text string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, k := range keyExp.FindAllString(text, -1) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

type linker struct {
	gh   *github.Client
	jc   *jira.Client
	repo string // owner/repo
	dry  bool
	out  io.Writer
}

// remoteLink returns the remote link describing a GitHub issue.
func (l *linker) remoteLink(is *github.Issue) jira.RemoteLinkOptions {
	kind := "Issue"
	if is.IsPullRequest() {
		kind = "Pull request"
	}
	return jira.RemoteLinkOptions{
		GlobalID: fmt.Sprintf("github:%s#%d", l.repo, is.GetNumber()),
		Object: &jira.RemoteLinkObject{
			URL:     is.GetHTMLURL(),
			Title:   fmt.Sprintf("%s#%d", l.repo, is.GetNumber()),
			Summary: is.GetTitle(),
			Icon:    &jira.Icon{URL: "https://github.com/favicon.ico", Title: "GitHub"},
			Status:  &jira.RemoteLinkStatus{Resolved: is.GetState() == "closed"},
		},
		Application:  map[string]string{"type": "com.github", "name": "GitHub"},
		Relationship: "mentioned in " + strings.ToLower(kind),
	}
}

// run searches GitHub and links every Jira issue mentioned.
// It returns the number of links made.
func (l *linker) run(ctx context.Context, query string) (int, error) {
	q := fmt.Sprintf("repo:%s %s", l.repo, query)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var n int
	for {
		result, resp, err := l.gh.Search.Issues(ctx, q, opts)
		if err != nil {
			return n, fmt.Errorf("search github: %w", err)
		}
		for _, is := range result.Issues {
			for _, key := range mentions(is.GetTitle() + "\n" + is.GetBody()) {
				link := l.remoteLink(is)
				fmt.Fprintf(l.out, "%s\t%s\t%s\n", key, link.Object.URL, link.Object.Summary)
				if l.dry {
					n++
					continue
				}
				if _, err := l.jc.AddRemoteLink(ctx, key, link); err != nil {
					if jira.IsNotFound(err) {
						log.Warn("skip unknown issue", "key", key, "github", link.GlobalID)
						continue
					}
					return n, fmt.Errorf("link %s to %s: %w", key, link.GlobalID, err)
				}
				n++
			}
		}
		if resp.NextPage == 0 {
			return n, nil
		}
		opts.Page = resp.NextPage
	}
}

func readToken(name string) (string, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read github token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

const usage = "usage: jiragh [-n] [-p owner/repo] [-token file] [-u url] [query]"

var (
	dryRun    = flag.Bool("n", false, "print links without making them")
	project   = flag.String("p", "golang/go", "GitHub repository")
	tokenFile = flag.String("token", "", "read GitHub token from `file`")
	server    = flag.String("u", "", "root URL of the Jira server")
)

func init() {
	log.SetPrefix("jiragh")
	log.SetReportTimestamp(false)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if strings.Count(*project, "/") != 1 {
		log.Fatal("bad repository, want owner/repo", "repo", *project)
	}
	query := strings.Join(flag.Args(), " ")
	if query == "" {
		query = "updated:>=" + time.Now().AddDate(0, 0, -7).Format(time.DateOnly)
	}

	ctx := context.Background()
	name := *tokenFile
	if name == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		name = filepath.Join(home, ".github-issue-token")
	}
	token, err := readToken(name)
	if err != nil {
		log.Fatal(err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := github.NewClient(oauth2.NewClient(ctx, ts))

	cfg, err := config.Load(nil, "")
	if err != nil {
		log.Fatal("load configuration", "err", err)
	}
	if *server != "" {
		cfg.Server = *server
	}
	jc, err := cfg.Client(log.Default())
	if err != nil {
		log.Fatal(err)
	}

	l := &linker{gh: gh, jc: jc, repo: *project, dry: *dryRun, out: os.Stdout}
	n, err := l.run(ctx, query)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("done", "links", n)
}
