// Command Jira is a Jira browser for the Acme text editor.
// Projects, issues and comments are presented as a file tree under /jira/.
// Right-click an issue key such as TEST-1 to open the issue.
//
// Usage:
//
//	Jira [ -s url ]
//
// The server and credentials are read from the configuration
// described in the jirashell command documentation.
//
// Commands available in windows are:
//
//	Get           reload the window
//	Search jql    list issues matching a JQL query
//	Comment       open a window to write a comment on the issue
//	Post          post the comment written in the window
//
// Comments are written in Go doc comment syntax and converted to Jira markup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"9fans.net/go/acme"
	"github.com/charmbracelet/log"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/jira"
)

func init() {
	log.SetPrefix("Jira")
	log.SetReportTimestamp(false)
}

type awin struct {
	*acme.Win
	fsys   fs.FS
	client *jira.Client
}

func (w *awin) name() string {
	b, err := w.ReadAll("tag")
	if err != nil {
		w.Err(err.Error())
		return ""
	}
	fields := strings.Fields(string(b))
	return strings.TrimPrefix(fields[0], "/jira/")
}

var issueKeyExp = regexp.MustCompile("^[A-Z][A-Z0-9]+-[0-9]+$")

// lookPath returns the file to open when text is looked at
// from the window named wname.
func lookPath(wname, text string) string {
	text = strings.TrimSpace(text)
	if issueKeyExp.MatchString(text) {
		proj, num, _ := strings.Cut(text, "-")
		return path.Join(proj, num, "issue")
	}
	if strings.HasSuffix(wname, "/") || wname == "" {
		return path.Join(wname, text)
	}
	return path.Join(path.Dir(wname), text)
}

func (w *awin) Look(text string) bool {
	pathname := lookPath(w.name(), text)
	f, err := w.fsys.Open(pathname)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	} else if err != nil {
		w.Err(err.Error())
		return false
	}

	win, err := acme.New()
	if err != nil {
		w.Err(err.Error())
		return true
	}
	wname := path.Join("/jira", pathname)
	stat, err := f.Stat()
	if err != nil {
		w.Err(err.Error())
		return true
	}
	if stat.IsDir() {
		wname += "/"
	}
	win.Name(wname)
	if path.Base(pathname) == "issue" {
		win.Fprintf("tag", "Comment ")
	}
	ww := &awin{win, w.fsys, w.client}
	go ww.EventLoop(ww)
	go func() {
		if err := ww.Get(f); err != nil {
			w.Err(err.Error())
		}
		ww.Addr("#0")
		ww.Ctl("dot=addr")
		ww.Ctl("show")
	}()
	return true
}

func (w *awin) Execute(cmd string) bool {
	fields := strings.Fields(strings.TrimSpace(cmd))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "Get":
		if err := w.Get(nil); err != nil {
			w.Err(err.Error())
		}
		return true
	case "Search":
		if len(fields) == 1 {
			return false
		}
		query := strings.Join(fields[1:], " ")
		go newSearch(w.fsys, w.client, query)
		return true
	case "Comment":
		if len(fields) > 1 {
			return false
		}
		win, err := acme.New()
		if err != nil {
			w.Err(err.Error())
			return false
		}
		dname := path.Dir(w.name())
		win.Name(path.Join("/jira", dname, "new"))
		win.Fprintf("tag", "Post ")
		a := &awin{win, w.fsys, w.client}
		go a.EventLoop(a)
		return true
	case "Post":
		if err := w.postComment(); err != nil {
			w.Errf("post comment: %s", err.Error())
			return true
		}
		w.Del(true)
		return true
	}
	return false
}

func (w *awin) Get(f fs.File) error {
	defer w.Ctl("clean")
	fname := path.Clean(w.name())
	if fname == "/" || fname == "" {
		fname = "." // special name for the root file in io/fs
	}
	if f == nil {
		var err error
		f, err = w.fsys.Open(strings.TrimSuffix(fname, "/"))
		if err != nil {
			return err
		}
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	if stat.IsDir() {
		d, ok := f.(fs.ReadDirFile)
		if !ok {
			return fmt.Errorf("%s: not a directory", stat.Name())
		}
		dirs, err := d.ReadDir(-1)
		if err != nil {
			return err
		}
		w.Clear()
		w.PrintTabbed(listing(dirs))
		return nil
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", stat.Name(), err)
	}
	w.Clear()
	if _, err := w.Write("body", b); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func listing(dirs []fs.DirEntry) string {
	buf := &strings.Builder{}
	for _, d := range dirs {
		if d.IsDir() {
			fmt.Fprintln(buf, d.Name()+"/")
			continue
		}
		fmt.Fprintln(buf, d.Name())
	}
	return buf.String()
}

// commentIssue returns the key of the issue commented on
// from a window named like TEST/1/new.
func commentIssue(wname string) (string, error) {
	elems := strings.Split(wname, "/")
	if len(elems) < 2 || elems[0] == "" || elems[1] == "" {
		return "", fmt.Errorf("window %s is not in an issue directory", wname)
	}
	return elems[0] + "-" + elems[1], nil
}

func (w *awin) postComment() error {
	defer w.Ctl("clean")
	body, err := w.ReadAll("body")
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	key, err := commentIssue(w.name())
	if err != nil {
		return err
	}
	_, err = w.client.AddComment(context.Background(), key, toWiki(string(body)), jira.CommentOptions{})
	return err
}

func newSearch(fsys fs.FS, client *jira.Client, query string) {
	win, err := acme.New()
	if err != nil {
		acme.Errf("new window: %v", err.Error())
		return
	}
	defer win.Ctl("clean")
	win.Name("/jira/search")
	win.PrintTabbed("Search " + query + "\n\n")
	issues, err := client.SearchIssues(context.Background(), query, nil)
	if err != nil {
		win.Errf("search %q: %v", query, err)
		return
	}
	win.PrintTabbed(jira.PrintIssues(issues))
	w := &awin{win, fsys, client}
	go w.EventLoop(w)
}

const usage string = "usage: Jira [-s url]"

var serverFlag = flag.String("s", "", "root URL of the Jira server")

func main() {
	flag.Usage = func() { log.Print(usage) }
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		return
	}
	cfg, err := config.Load(nil, "")
	if err != nil {
		log.Fatal("load configuration", "err", err)
	}
	if *serverFlag != "" {
		cfg.Server = *serverFlag
	}
	client, err := cfg.Client(log.Default())
	if err != nil {
		log.Fatal(err)
	}
	fsys := jira.NewFS(context.Background(), client)

	acme.AutoExit(true)
	win, err := acme.New()
	if err != nil {
		log.Fatal(err)
	}
	win.Name("/jira/")
	root := &awin{win, fsys, client}
	root.Get(nil)
	root.Addr("#0")
	root.Ctl("dot=addr")
	root.Ctl("show")
	win.Ctl("clean")
	root.EventLoop(root)
}
