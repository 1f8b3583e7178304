package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func configHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	for _, k := range []string{"JIRA_SERVER", "JIRA_USER", "JIRA_PASSWORD", "JIRA_TOKEN", "JIRA_CLOUD", "JIRA_OUTPUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(home, "atlassian"), 0o700))
	return home
}

func TestLoadDefaults(t *testing.T) {
	configHome(t)
	c, err := Load(nil, "")
	require.NoError(t, err)
	require.Equal(t, "text", c.Output)
	require.Equal(t, 3, c.MaxRetries)
	require.Equal(t, time.Minute, c.MaxRetryDelay)
	require.Empty(t, c.Server)
}

func TestLoadPrecedence(t *testing.T) {
	home := configHome(t)
	dir := filepath.Join(home, "atlassian")
	yml := "server: https://file.example.com\nuser: fileuser\nmax-retry-delay: 30s\noutput: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jira.yaml"), []byte(yml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jira"), []byte("otl:hunter2\n"), 0o600))
	t.Setenv("JIRA_TOKEN", "envtoken")
	t.Setenv("JIRA_OUTPUT", "yaml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("server", "s", "", "")
	flags.StringP("output", "o", "text", "")
	require.NoError(t, flags.Parse([]string{"-s", "https://flag.example.com"}))

	c, err := Load(flags, "")
	require.NoError(t, err)
	require.Equal(t, "https://flag.example.com", c.Server)
	require.Equal(t, "otl", c.User, "legacy credentials override the file")
	require.Equal(t, "hunter2", c.Password)
	require.Equal(t, "envtoken", c.Token)
	require.Equal(t, "yaml", c.Output, "environment overrides the file and unset flags")
	require.Equal(t, 30*time.Second, c.MaxRetryDelay)
}

func TestLoadExplicitMissing(t *testing.T) {
	home := configHome(t)
	_, err := Load(nil, filepath.Join(home, "nope.yaml"))
	require.Error(t, err)
}

func TestBadLegacy(t *testing.T) {
	home := configHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "atlassian", "jira"), []byte("otl"), 0o600))
	_, err := Load(nil, "")
	require.ErrorContains(t, err, "missing")
}

func TestWrite(t *testing.T) {
	home := configHome(t)
	name := filepath.Join(home, "sub", "jira.yaml")
	want := &Config{
		Server:        "https://jira.example.com",
		Token:         "secret",
		Cloud:         true,
		MaxRetries:    5,
		MaxRetryDelay: 10 * time.Second,
		Output:        "text",
	}
	require.NoError(t, Write(name, want))
	info, err := os.Stat(name)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(nil, name)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestClient(t *testing.T) {
	_, err := (&Config{}).Client(nil)
	require.Error(t, err)
	_, err = (&Config{Server: "jira.example.com"}).Client(nil)
	require.Error(t, err)

	c := &Config{Server: "https://example.com/jira", User: "otl", Password: "x", Cloud: true}
	client, err := c.Client(nil)
	require.NoError(t, err)
	require.Equal(t, "/jira", client.Server.Path)
	require.True(t, client.Cloud)
	require.Equal(t, "otl", client.Username)
	require.Equal(t, -1, client.MaxRetries)
}
