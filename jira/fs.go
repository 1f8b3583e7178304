package jira

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

// FS is a read-only view of projects, issues and comments.
//
// JRASERVER/1234/issue
// JRASERVER/1234/5678
type FS struct {
	client *Client
	ctx    context.Context
	root   *fid
}

// NewFS returns a filesystem backed by c.
// Requests made while serving the filesystem use ctx.
func NewFS(ctx context.Context, c *Client) *FS {
	return &FS{client: c, ctx: ctx}
}

const (
	ftypeRoot int = iota
	ftypeProject
	ftypeIssue
	ftypeIssueDir
	ftypeComment
)

type fid struct {
	fsys   *FS
	name   string
	typ    int
	rd     io.Reader
	parent *fid

	// May be set but only as an optimisation to skip a Stat().
	stat fs.FileInfo

	// directories only
	children []fs.DirEntry
	dirp     int
}

func (f *fid) Name() string { return f.name }
func (f *fid) IsDir() bool  { return f.Type().IsDir() }

func (f *fid) Type() fs.FileMode {
	switch f.typ {
	case ftypeRoot, ftypeProject, ftypeIssueDir:
		return fs.ModeDir
	}
	return 0
}

func (f *fid) Info() (fs.FileInfo, error) { return f.Stat() }

func (f *fid) debug(op string) {
	f.fsys.client.session().logger().Debug(op, "name", f.name)
}

func (f *fid) Stat() (fs.FileInfo, error) {
	f.debug("stat")
	if f.stat != nil {
		return f.stat, nil
	}

	c, ctx := f.fsys.client, f.fsys.ctx
	switch f.typ {
	case ftypeRoot:
		return &stat{".", int64(len(f.children)), 0o444 | fs.ModeDir, time.Time{}}, nil
	case ftypeProject:
		p, err := c.Project(ctx, f.name)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
		}
		return projectStat(p), nil
	case ftypeIssueDir, ftypeIssue:
		is, err := c.Issue(ctx, f.issueKey(), nil)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
		}
		if f.typ == ftypeIssueDir {
			f.children = issueChildren(f, is)
			return is, nil
		}
		// we might read the file soon so load the contents.
		f.rd = strings.NewReader(printIssue(is))
		return &stat{f.name, int64(len(printIssue(is))), 0o444, is.Updated}, nil
	case ftypeComment:
		cm, err := c.Comment(ctx, f.issueKey(), f.name)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
		}
		f.rd = strings.NewReader(printComment(cm))
		return cm, nil
	}
	err := fmt.Errorf("unexpected fid type %d", f.typ)
	return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
}

func (f *fid) Read(p []byte) (n int, err error) {
	f.debug("read")
	if f.rd == nil {
		c, ctx := f.fsys.client, f.fsys.ctx
		switch f.typ {
		case ftypeComment:
			cm, err := c.Comment(ctx, f.issueKey(), f.name)
			if err != nil {
				err = fmt.Errorf("get comment %s: %w", f.issueKey(), err)
				return 0, &fs.PathError{Op: "read", Path: f.name, Err: err}
			}
			f.rd = strings.NewReader(printComment(cm))
		case ftypeIssue:
			is, err := c.Issue(ctx, f.issueKey(), nil)
			if err != nil {
				err = fmt.Errorf("get issue %s: %w", f.issueKey(), err)
				return 0, &fs.PathError{Op: "read", Path: f.name, Err: err}
			}
			f.rd = strings.NewReader(printIssue(is))
		default:
			return 0, &fs.PathError{Op: "read", Path: f.name, Err: fmt.Errorf("is a directory")}
		}
	}
	return f.rd.Read(p)
}

func (f *fid) Close() error {
	f.rd = nil
	f.stat = nil
	return nil
}

func (f *fid) ReadDir(n int) ([]fs.DirEntry, error) {
	f.debug("readdir")
	if !f.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: f.name, Err: fmt.Errorf("not a directory")}
	}
	if f.children == nil {
		c, ctx := f.fsys.client, f.fsys.ctx
		switch f.typ {
		case ftypeRoot:
			return nil, fmt.Errorf("root initialised incorrectly: no dir entries")
		case ftypeProject:
			issues, err := c.ProjectIssues(ctx, f.name)
			if err != nil {
				return nil, fmt.Errorf("get issues: %w", err)
			}
			f.children = make([]fs.DirEntry, len(issues))
			for i, issue := range issues {
				f.children[i] = &fid{
					fsys:   f.fsys,
					name:   issue.Name(),
					typ:    ftypeIssueDir,
					parent: f,
				}
			}
		case ftypeIssueDir:
			issue, err := c.Issue(ctx, f.issueKey(), nil)
			if err != nil {
				return nil, fmt.Errorf("get issue %s: %w", f.name, err)
			}
			f.children = issueChildren(f, issue)
		}
	}

	if f.dirp >= len(f.children) {
		if n <= 0 {
			return nil, nil
		}
		return nil, io.EOF
	}
	if n <= 0 {
		d := f.children[f.dirp:]
		f.dirp = len(f.children)
		return d, nil
	}

	var err error
	d := f.children[f.dirp:]
	if len(d) > n {
		d = d[:n]
	} else if len(d) < n {
		err = io.EOF
	}
	f.dirp += len(d)
	return d, err
}

func issueChildren(parent *fid, is *Issue) []fs.DirEntry {
	kids := make([]fs.DirEntry, len(is.Comments)+1)
	for i := range is.Comments {
		c := &is.Comments[i]
		kids[i] = &fid{
			fsys:   parent.fsys,
			name:   c.ID,
			typ:    ftypeComment,
			rd:     strings.NewReader(printComment(c)),
			parent: parent,
			stat:   c,
		}
	}
	kids[len(kids)-1] = &fid{
		fsys:   parent.fsys,
		name:   "issue",
		typ:    ftypeIssue,
		rd:     strings.NewReader(printIssue(is)),
		parent: parent,
		stat:   &stat{"issue", int64(len(printIssue(is))), 0o444, is.Updated},
	}
	return kids
}

func (f *fid) issueKey() string {
	// to make the issue key e.g. "EXAMPLE-42"
	// we need the name of the issue (parent name, "42")
	// and the name of the project (the issue's parent's name, "EXAMPLE")
	var project, issueNumber string
	switch f.typ {
	default:
		return ""
	case ftypeComment, ftypeIssue:
		project = f.parent.parent.name
		issueNumber = f.parent.name
	case ftypeIssueDir:
		project = f.parent.name
		issueNumber = f.name
	}
	return project + "-" + issueNumber
}

func (fsys *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	name = path.Clean(name)
	if strings.Contains(name, "\\") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	if fsys.root == nil {
		var err error
		fsys.root, err = makeRoot(fsys)
		if err != nil {
			return nil, fmt.Errorf("make root file: %w", err)
		}
	}
	fsys.client.session().logger().Debug("open", "name", name)

	if name == "." {
		f := *fsys.root
		return &f, nil
	}

	f := fsys.root
	for _, elem := range strings.Split(name, "/") {
		dir, err := find(f, elem)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		f = dir
	}
	g := *f
	return &g, nil
}

func makeRoot(fsys *FS) (*fid, error) {
	projects, err := fsys.client.Projects(fsys.ctx)
	if err != nil {
		return nil, err
	}
	root := &fid{
		fsys:     fsys,
		name:     ".",
		typ:      ftypeRoot,
		children: make([]fs.DirEntry, len(projects)),
	}
	for i, p := range projects {
		root.children[i] = &fid{
			fsys:   fsys,
			name:   p.Key,
			typ:    ftypeProject,
			parent: root,
		}
	}
	return root, nil
}

func find(dir *fid, name string) (*fid, error) {
	if !dir.IsDir() {
		return nil, fs.ErrNotExist
	}
	c, ctx := dir.fsys.client, dir.fsys.ctx
	child := &fid{fsys: dir.fsys, parent: dir}
	switch dir.typ {
	case ftypeRoot:
		for _, d := range dir.children {
			if d.Name() == name {
				child, ok := d.(*fid)
				if !ok {
					return nil, fmt.Errorf("unexpected dir entry type %T", d)
				}
				return child, nil
			}
		}
		return nil, fs.ErrNotExist
	case ftypeProject:
		key := fmt.Sprintf("%s-%s", dir.name, name)
		ok, err := c.CheckIssue(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fs.ErrNotExist
		}
		child.name = name
		child.typ = ftypeIssueDir
		return child, nil
	case ftypeIssueDir:
		if name == "issue" {
			child.name = name
			child.typ = ftypeIssue
			return child, nil
		}
		ok, err := c.CheckComment(ctx, dir.issueKey(), name)
		if err != nil {
			return nil, err
		} else if !ok {
			return nil, fs.ErrNotExist
		}
		child.name = name
		child.typ = ftypeComment
		return child, nil
	}
	return nil, fs.ErrNotExist
}
