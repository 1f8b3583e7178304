package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"olowe.co/issues/jira"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// print writes v to the command's output in the requested format.
// Text is only rendered when needed.
func (a *app) print(cmd *cobra.Command, v any, text func() string) error {
	w := cmd.OutOrStdout()
	format := a.output(cmd)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		_, err := io.WriteString(w, text())
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render() + "\n"
}

func userName(u *jira.User) string {
	if u.Raw == nil {
		return ""
	}
	return u.String()
}

func readAll(cmd *cobra.Command) (string, error) {
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// eval runs one shell line as a jirashell command line.
func (a *app) eval(ctx context.Context, line string) (string, error) {
	args, err := splitLine(line)
	if err != nil {
		return "", err
	}
	if len(args) > 0 && (args[0] == "help" || args[0] == "?") {
		args = append([]string{"--help"}, args[1:]...)
	}
	root := newRootCmd(a)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err = root.ExecuteContext(ctx)
	return buf.String(), err
}

// splitLine splits a line into words the way a POSIX shell would.
// An empty line has no words.
func splitLine(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
