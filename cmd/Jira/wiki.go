package main

import (
	"fmt"
	"go/doc/comment"
	"strings"
)

// toWiki converts text written in Go doc comment syntax
// to Jira wiki markup for posting as a comment.
// https://jira.atlassian.com/secure/WikiRendererHelpAction.jspa?section=all
func toWiki(content string) string {
	var p comment.Parser
	doc := p.Parse(content)
	buf := &strings.Builder{}
	for _, block := range doc.Content {
		switch v := block.(type) {
		case *comment.Heading:
			fmt.Fprintf(buf, "h3. %s\n", render(v.Text))
		case *comment.Paragraph:
			s := render(v.Text)
			if q, ok := quoted(s); ok {
				fmt.Fprintf(buf, "{quote}%s{quote}\n", q)
				break
			}
			fmt.Fprintln(buf, s)
		case *comment.Code:
			fmt.Fprintf(buf, "{noformat}\n%s{noformat}\n", v.Text)
		case *comment.List:
			buf.WriteString(renderList(v))
		}
		fmt.Fprintln(buf)
	}
	return strings.TrimSpace(buf.String())
}

// quoted reports whether every line of a paragraph was quoted email-style,
// returning the text without the quote markers.
func quoted(s string) (string, bool) {
	if !strings.HasPrefix(s, "> ") {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimPrefix(s, "> "), " > ", " "), true
}

func renderList(list *comment.List) string {
	buf := &strings.Builder{}
	for _, it := range list.Items {
		prefix := "*"
		if it.Number != "" {
			prefix = "#"
		}
		for _, block := range it.Content {
			// list items only hold paragraphs
			fmt.Fprintln(buf, prefix, render(block.(*comment.Paragraph).Text))
		}
	}
	return buf.String()
}

func render(text []comment.Text) string {
	buf := &strings.Builder{}
	for _, txt := range text {
		switch v := txt.(type) {
		case comment.Plain:
			buf.WriteString(strings.ReplaceAll(string(v), "\n", " "))
		case comment.Italic:
			fmt.Fprintf(buf, "_%s_", v)
		case *comment.Link:
			if v.Auto {
				fmt.Fprintf(buf, "[%s]", v.URL)
			} else {
				fmt.Fprintf(buf, "[%s|%s]", render(v.Text), v.URL)
			}
		case *comment.DocLink:
			// not godoc; keep the brackets the author typed
			fmt.Fprintf(buf, "[%s]", render(v.Text))
		default:
			fmt.Fprintf(buf, "%v", v)
		}
	}
	return buf.String()
}
