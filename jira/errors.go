package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error describes a request the Jira server rejected.
// Request headers and bodies are never recorded,
// so an Error is safe to log.
type Error struct {
	StatusCode int
	Method     string
	URL        string
	// Messages holds the error messages parsed from the response body.
	Messages []string
	// Text is the raw response body.
	Text string
}

func (e *Error) Error() string {
	status := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = strings.TrimSpace(e.Text)
	}
	if msg == "" {
		return fmt.Sprintf("jira: %s %s: %s", e.Method, e.URL, status)
	}
	return fmt.Sprintf("jira: %s %s: %s: %s", e.Method, e.URL, status, msg)
}

// IsNotFound reports whether err was caused by a 404 response.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// parseErrors extracts error messages from a Jira error document.
// Jira is inconsistent about where it puts them;
// see https://developer.atlassian.com/server/jira/platform/rest/v10000/intro/#status-codes
func parseErrors(body []byte) []string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	for _, key := range []string{"message", "errorMessage"} {
		if raw, ok := doc[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return []string{s}
			}
		}
	}
	if raw, ok := doc["errorMessages"]; ok {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return []string{s}
		}
	}
	if raw, ok := doc["errors"]; ok {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, len(keys))
		for i, k := range keys {
			msgs[i] = fmt.Sprint(fields[k])
		}
		return msgs
	}
	return nil
}
