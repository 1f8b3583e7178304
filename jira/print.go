package jira

import (
	"fmt"
	"net/mail"
	"net/url"
	"path"
	"strings"
	"time"
)

// PrintIssues lists issues one per line as a path to the issue file
// and the issue summary.
func PrintIssues(issues []Issue) string {
	buf := &strings.Builder{}
	for _, ii := range issues {
		name := strings.Replace(ii.Key, "-", "/", 1)
		fmt.Fprintf(buf, "%s/issue\t%s\n", name, ii.Summary)
	}
	return buf.String()
}

// Address formats the user as an RFC 5322 address, such as
// "Otl <otl@example.com>". Users without an email address are
// represented by their display name alone.
func (u *User) Address() string {
	name := u.DisplayName
	if name == "" {
		name = u.Name
	}
	if u.Email == "" {
		return name
	}
	a := &mail.Address{Name: name, Address: u.Email}
	return a.String()
}

// browseURL derives the issue's web address from its self URL,
// keeping any context path the server is served under.
func browseURL(self, key string) string {
	u, err := url.Parse(self)
	if err != nil || u.Host == "" {
		return ""
	}
	root, _, _ := strings.Cut(u.Path, "/rest/")
	u.Path = path.Join("/", root, "browse", key)
	u.RawQuery = ""
	return u.String()
}

func printIssue(i *Issue) string {
	buf := &strings.Builder{}
	fmt.Fprintln(buf, "From:", i.Reporter.Address())
	fmt.Fprintln(buf, "Date:", i.Created.Format(time.RFC1123Z))
	if a := i.Assignee.Address(); a != "" {
		fmt.Fprintln(buf, "Assignee:", a)
	}
	if u := browseURL(i.Self, i.Key); u != "" {
		fmt.Fprintf(buf, "Archived-At: <%s>\n", u)
	}
	if i.Self != "" {
		fmt.Fprintf(buf, "Archived-At: <%s>\n", i.Self)
	}
	fmt.Fprintln(buf, "Status:", i.Status.Name)
	if len(i.Links) > 0 {
		s := make([]string, len(i.Links))
		for j := range i.Links {
			s[j] = i.Links[j].Linked()
		}
		fmt.Fprintln(buf, "References:", strings.Join(s, ", "))
	}
	if len(i.Subtasks) > 0 {
		s := make([]string, len(i.Subtasks))
		for j := range i.Subtasks {
			s[j] = i.Subtasks[j].Key
		}
		fmt.Fprintln(buf, "Subtasks:", strings.Join(s, ", "))
	}
	fmt.Fprintln(buf, "Subject:", i.Summary)
	fmt.Fprintln(buf)

	if i.Description != "" {
		fmt.Fprintln(buf, strings.ReplaceAll(i.Description, "\r", ""))
	}
	if len(i.Comments) == 0 {
		return buf.String()
	}
	fmt.Fprintln(buf)
	for _, c := range i.Comments {
		date := c.Created
		if !c.Updated.IsZero() {
			date = c.Updated
		}
		fmt.Fprintf(buf, "%s\t%s\t%s (%s)\n", c.ID, summarise(c.Body, 36), c.Author.Name, date.Format(time.DateTime))
	}
	return buf.String()
}

// PrintIssue renders the issue as an RFC 5322-style message
// followed by a summary of its comments.
func PrintIssue(i *Issue) string { return printIssue(i) }

func printComment(c *Comment) string {
	buf := &strings.Builder{}
	date := c.Created
	if !c.Updated.IsZero() {
		date = c.Updated
	}
	fmt.Fprintln(buf, "From:", c.Author.Address())
	fmt.Fprintln(buf, "Date:", date.Format(time.RFC1123Z))
	fmt.Fprintln(buf)
	fmt.Fprintln(buf, strings.TrimSpace(c.Body))
	return buf.String()
}

func summarise(body string, length int) string {
	if len(body) < length {
		body = strings.ReplaceAll(body, "\n", " ")
		return strings.TrimSpace(body)
	}
	body = body[:length]
	body = strings.ReplaceAll(body, "\r", "")
	body = strings.ReplaceAll(body, "\n", " ")
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "  ", " ")
	return body + "..."
}
