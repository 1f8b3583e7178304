package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/internal/shell"
	"olowe.co/issues/jira"
)

func newIssueCmd(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "issue key",
		Short: "Print an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := a.client.Issue(cmd.Context(), args[0], &jira.IssueOptions{Fields: fields})
			if err != nil {
				return err
			}
			return a.print(cmd, issue.Raw, func() string { return jira.PrintIssue(issue) })
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "only fetch these fields")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "search jql...",
		Short: "List issues matching a JQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jql := strings.Join(args, " ")
			issues, err := a.client.SearchIssues(cmd.Context(), jql, &jira.SearchOptions{MaxResults: max})
			if err != nil {
				return err
			}
			raw := make([]map[string]any, len(issues))
			rows := make([][]string, len(issues))
			for i := range issues {
				is := &issues[i]
				raw[i] = is.Raw
				rows[i] = []string{is.Key, is.Status.Name, userName(&is.Assignee), is.Summary}
			}
			return a.print(cmd, raw, func() string {
				return renderTable([]string{"Key", "Status", "Assignee", "Summary"}, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&max, "max", "n", 50, "print at most this many issues; 0 prints all")
	return cmd
}

func newCommentCmd(a *app) *cobra.Command {
	var internal bool
	cmd := &cobra.Command{
		Use:   "comment key text...",
		Short: "Add a comment to an issue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if text == "-" {
				b, err := readAll(cmd)
				if err != nil {
					return err
				}
				text = b
			}
			c, err := a.client.AddComment(cmd.Context(), args[0], text, jira.CommentOptions{Internal: internal})
			if err != nil {
				return err
			}
			return a.print(cmd, c.Raw, func() string { return fmt.Sprintf("%s/%s\n", args[0], c.ID) })
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "hide the comment from service desk customers")
	return cmd
}

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.client.Projects(cmd.Context())
			if err != nil {
				return err
			}
			raw := make([]map[string]any, len(projects))
			rows := make([][]string, len(projects))
			for i := range projects {
				p := &projects[i]
				raw[i] = p.Raw
				rows[i] = []string{p.Key, p.Name, userName(&p.Lead)}
			}
			return a.print(cmd, raw, func() string {
				return renderTable([]string{"Key", "Name", "Lead"}, rows)
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "get kind id...",
		Short: "Print any resource by kind and ID",
		Long: `Get prints the resource of the given kind, such as issue, comment or board.
Comments, worklogs and other resources belonging to an issue
are identified by the issue key followed by their own ID.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := jira.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown resource kind %q", args[0])
			}
			r, err := a.client.Find(cmd.Context(), kind, args[1:]...)
			if err != nil {
				return err
			}
			if expr == "" {
				return a.print(cmd, r.Raw, func() string { return fmt.Sprintf("%s %s\n", r.Kind, r) })
			}
			v, err := r.Lookup(expr)
			if err != nil {
				return err
			}
			return a.print(cmd, v, func() string { return fmt.Sprintln(v) })
		},
	}
	cmd.Flags().StringVar(&expr, "path", "", "print only the value at this JSONPath expression")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.configFile(cmd)
			if name == "" {
				var err error
				if name, err = config.Path(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(name); err == nil && !force {
				return fmt.Errorf("%s already exists", name)
			}
			if a.cfg.Server == "" {
				return errors.New("no server given; set one with --server")
			}
			c := *a.cfg
			// credentials stay in the environment or the credentials file
			c.Password = ""
			if err := config.Write(name, &c); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inShell {
				return errors.New("already in a shell")
			}
			return a.runShell(cmd)
		},
	}
}

func (a *app) runShell(cmd *cobra.Command) error {
	a.inShell = true
	defer func() { a.inShell = false }()
	return shell.Run(cmd.Context(), shell.EvalFunc(a.eval), "jira> ")
}
