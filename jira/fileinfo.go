package jira

import (
	"io/fs"
	"strings"
	"time"
)

// Name returns the number of the issue, "42" for EXAMPLE-42.
func (issue *Issue) Name() string {
	_, number, found := strings.Cut(issue.Key, "-")
	if !found {
		return issue.Key
	}
	return number
}

func (issue *Issue) Size() int64        { return int64(len(printIssue(issue))) }
func (issue *Issue) Mode() fs.FileMode  { return 0o444 | fs.ModeDir }
func (issue *Issue) ModTime() time.Time { return issue.Updated }
func (issue *Issue) IsDir() bool        { return issue.Mode().IsDir() }
func (issue *Issue) Sys() any           { return nil }

func (c *Comment) Name() string       { return c.ID }
func (c *Comment) Size() int64        { return int64(len(printComment(c))) }
func (c *Comment) Mode() fs.FileMode  { return 0o444 }
func (c *Comment) ModTime() time.Time { return c.Updated }
func (c *Comment) IsDir() bool        { return c.Mode().IsDir() }
func (c *Comment) Sys() any           { return nil }

// Project already has a Name field, so it is described by a stat.
func projectStat(p *Project) *stat {
	return &stat{p.Key, 0, 0o444 | fs.ModeDir, time.Time{}}
}

type stat struct {
	name  string
	size  int64
	mode  fs.FileMode
	mtime time.Time
}

func (s stat) Name() string       { return s.name }
func (s stat) Size() int64        { return s.size }
func (s stat) Mode() fs.FileMode  { return s.mode }
func (s stat) ModTime() time.Time { return s.mtime }
func (s stat) IsDir() bool        { return s.Mode().IsDir() }
func (s stat) Sys() any           { return nil }
