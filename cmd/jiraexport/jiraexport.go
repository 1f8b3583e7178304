// Command jiraexport prints the named Jira issues, and their comments,
// in RFC 5322 mail message format (email).
//
// Usage:
//
//	jiraexport [ -d duration ] [ -c ] [ -u url ] issue...
//
// The options are:
//
//	-d duration
//		Exclude any comments unmodified since duration.
//		Duration may be given in the format accepted by time.ParseDuration.
//		For example, 24h (24 hours). The default is 7 days.
//	-c
//		Only print comments, excluding the issue.
//	-u url
//		The root URL of the Jira server.
//		The default is read from the configuration.
//
// # Example
//
// Print the last day's updates to tickets SRE-1234 and SRE-5678:
//
//	jiraexport -d 24h SRE-1234 SRE-5678
//
// Archive the first 500 tickets of a project in a mbox file:
//
//	for i in `seq 1 500`
//	do
//		jiraexport TEST-$i >>issues.mbox
//	done
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/jira"
)

func copyMessage(w io.Writer, msg *mail.Message) (n int, err error) {
	for k, v := range msg.Header {
		for i := range v {
			nn, err := fmt.Fprintf(w, "%s: %s\n", k, v[i])
			n += nn
			if err != nil {
				return n, fmt.Errorf("write header field %s: %w", k, err)
			}
		}
	}
	nnn, err := fmt.Fprintln(w)
	n += nnn
	if err != nil {
		return n, err
	}
	nn, err := io.Copy(w, msg.Body)
	return n + int(nn), err
}

const usage string = "jiraexport [-d duration] [-c] [-u url] issue [...]"

var since = flag.Duration("d", 7*24*time.Hour, "exclude activity older than this duration")
var server = flag.String("u", "", "root URL of the Jira server")
var onlyComments = flag.Bool("c", false, "only print comments")

func init() {
	log.SetPrefix("jiraexport")
	log.SetReportTimestamp(false)
}

// export prints the issue named key and its recent comments from fsys.
func export(w io.Writer, fsys fs.FS, key string) error {
	proj, num, ok := strings.Cut(key, "-")
	if !ok {
		return fmt.Errorf("bad issue name %q: missing - separator", key)
	}
	dir := path.Join(proj, num)
	issue, err := fsys.Open(path.Join(dir, "issue"))
	if err != nil {
		return err
	}
	defer issue.Close()
	msg, err := mail.ReadMessage(issue)
	if err != nil {
		return fmt.Errorf("read issue: %w", err)
	}
	subject := msg.Header.Get("Subject")
	if !*onlyComments {
		if _, err := copyMessage(w, msg); err != nil {
			return fmt.Errorf("print issue: %w", err)
		}
	}

	dents, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, d := range dents {
		if d.Name() == "issue" {
			continue // already done
		}
		info, err := d.Info()
		if err != nil {
			log.Warn("skip comment", "issue", key, "err", err)
			continue
		}
		if time.Since(info.ModTime()) >= *since {
			continue
		}
		f, err := fsys.Open(path.Join(dir, d.Name()))
		if err != nil {
			log.Warn("skip comment", "issue", key, "err", err)
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "From nobody", info.ModTime().Format(time.ANSIC))
		fmt.Fprintln(w, "Subject:", subject)
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal(usage)
	}

	cfg, err := config.Load(nil, "")
	if err != nil {
		log.Fatal("load configuration", "err", err)
	}
	if *server != "" {
		cfg.Server = *server
	}
	client, err := cfg.Client(log.Default())
	if err != nil {
		log.Fatal(err)
	}
	fsys := jira.NewFS(context.Background(), client)

	var failed bool
	for _, arg := range flag.Args() {
		if err := export(os.Stdout, fsys, arg); err != nil {
			log.Error(arg, "err", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
