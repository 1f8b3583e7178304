// Command jirashell queries and edits Jira issues from the command line.
// Run without a subcommand from a terminal, it starts an interactive
// shell accepting the same subcommands, one per line.
//
// Usage:
//
//	jirashell [flags] [command] [args...]
//
// The commands are:
//
//	issue key             print an issue
//	search jql            list issues matching a JQL query
//	comment key text...   add a comment to an issue
//	projects              list projects
//	get kind id...        print any resource, optionally a JSONPath from it
//	config init           write the current settings to the config file
//	shell                 start the interactive shell
//
// Settings are read from $XDG_CONFIG_HOME/atlassian/jira.yaml,
// the credentials file $XDG_CONFIG_HOME/atlassian/jira,
// environment variables prefixed JIRA_ (such as JIRA_SERVER and JIRA_TOKEN),
// then flags.
//
// # Examples
//
// Print open issues assigned to yourself as JSON:
//
//	jirashell -o json search 'assignee = currentUser() and resolution is empty'
//
// Print the name of an issue's status:
//
//	jirashell get issue TEST-1 --path '$.fields.status.name'
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"olowe.co/issues/internal/config"
	"olowe.co/issues/jira"
)

type app struct {
	cfg    *config.Config
	client *jira.Client
	log    *log.Logger

	// config file named at startup; shell lines may override it per command
	cfgFile string
	// set when running commands from within the shell
	inShell bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "jirashell",
		Short:         "Query and edit Jira issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inShell || !term.IsTerminal(int(os.Stdin.Fd())) {
				return cmd.Help()
			}
			return a.runShell(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $XDG_CONFIG_HOME/atlassian/jira.yaml)")
	pf.StringP("server", "s", "", "root URL of the Jira server")
	pf.StringP("user", "u", "", "username for basic authentication")
	pf.StringP("password", "p", "", "password for basic authentication")
	pf.BoolP("prompt-password", "P", false, "read the password from the terminal")
	pf.String("token", "", "personal access token")
	pf.Bool("cloud", false, "address users by account ID as Jira Cloud does")
	pf.StringP("output", "o", "text", "output format: text, json or yaml")
	pf.Bool("debug", false, "log requests")

	root.AddCommand(
		newIssueCmd(a),
		newSearchCmd(a),
		newCommentCmd(a),
		newProjectsCmd(a),
		newGetCmd(a),
		newConfigCmd(a),
		newShellCmd(a),
	)
	return root
}

// setup loads the configuration and connects the client,
// unless already done by an enclosing shell.
func (a *app) setup(cmd *cobra.Command) error {
	if a.client != nil {
		return nil
	}
	a.cfgFile = a.configFile(cmd)
	name := a.cfgFile
	if cmd.Name() == "init" {
		if _, err := os.Stat(name); err != nil {
			// the file is about to be created
			name = ""
		}
	}
	cfg, err := config.Load(cmd.Flags(), name)
	if err != nil {
		return err
	}
	if cfg.Debug {
		a.log.SetLevel(log.DebugLevel)
	}
	if prompt, _ := cmd.Flags().GetBool("prompt-password"); prompt {
		pass, err := readPassword(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg.Password = pass
	}
	a.cfg = cfg
	if cmd.Name() == "init" {
		// config init may run before a server is known.
		return nil
	}
	client, err := cfg.Client(a.log)
	if err != nil {
		return fmt.Errorf("configure client: %w", err)
	}
	a.client = client
	return nil
}

func readPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("read password: standard input is not a terminal")
	}
	fmt.Fprint(w, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// configFile returns the config file named by the --config flag of cmd,
// or the one named when the app started.
func (a *app) configFile(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		name, _ := cmd.Flags().GetString("config")
		return name
	}
	return a.cfgFile
}

// output returns the output format requested for cmd.
func (a *app) output(cmd *cobra.Command) string {
	if cmd.Flags().Changed("output") {
		s, _ := cmd.Flags().GetString("output")
		return s
	}
	if a.cfg != nil && a.cfg.Output != "" {
		return a.cfg.Output
	}
	return "text"
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "jirashell", Level: log.WarnLevel})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{log: logger}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		logger.Fatal(err)
	}
}
