// Command jiraq lists Jira issues matching the provided Jira query.
// Queries must be provided as a single quoted argument in JQL format,
// such as "project = EXAMPLE and status = Done".
//
// Its usage is:
//
//	jiraq [ -u url ] [ -n max ] query
//
// The flags are:
//
//	-u url
//		The root URL of the Jira server.
//		The default is read from the configuration,
//		as described in the jirashell command documentation.
//	-n max
//		Print at most max issues. The default, 0, prints all matches.
//
// # Examples
//
// Print an overview of all open tickets in the project "SRE":
//
//	jiraq -u https://company.example.net 'project = SRE and status != done'
//
// Subsequent examples omit the "-u" flag for brevity.
// List all open tickets assigned to yourself in the project "SRE":
//
//	jiraq 'project = SRE and status != done and assignee = currentuser()'
//
// Print issues updated since yesterday:
//
//	query='project = SRE and status != done and updated >= -24h'
//	jiraexport `jiraq "$query" | awk '{print $1}'`
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/jira"
)

var server = flag.String("u", "", "root URL of the Jira server")
var max = flag.Int("n", 0, "print at most this many issues")

const usage = "usage: jiraq [-u url] [-n max] query"

func init() {
	log.SetPrefix("jiraq")
	log.SetReportTimestamp(false)
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

	query := strings.Join(flag.Args(), " ")
	issues, err := client.SearchIssues(context.Background(), query, &jira.SearchOptions{MaxResults: *max})
	if err != nil {
		log.Fatal(err)
	}
	for _, is := range issues {
		fmt.Fprintf(os.Stdout, "%s\t%s\n", is.Key, is.Summary)
	}
}
