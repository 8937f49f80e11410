package probes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveKnownProbes(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite", "github", "gitlab", "jira", "websocket"} {
		_, ok := constructors[name]
		require.True(t, ok, "probe %q should be registered", name)
	}
}

func TestResolveUnknownProbeErrors(t *testing.T) {
	_, err := Resolve("does-not-exist", nil)
	require.Error(t, err)
}

func TestPostgresRequiresDSN(t *testing.T) {
	_, err := Resolve("postgres", map[string]string{})
	require.Error(t, err)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := Resolve("sqlite", map[string]string{})
	require.Error(t, err)
}

func TestGitHubRequiresOwnerAndRepo(t *testing.T) {
	_, err := Resolve("github", map[string]string{"owner": "veggerby"})
	require.Error(t, err)

	op, err := Resolve("github", map[string]string{"owner": "veggerby", "repo": "ignition"})
	require.NoError(t, err)
	require.NotNil(t, op)
}

func TestGitLabRequiresProjectPathAndToken(t *testing.T) {
	_, err := Resolve("gitlab", map[string]string{"project_path": "group/project"})
	require.Error(t, err)
}

func TestJiraRequiresAllFields(t *testing.T) {
	_, err := Resolve("jira", map[string]string{"base_url": "https://example.atlassian.net"})
	require.Error(t, err)
}

func TestWebSocketRequiresURL(t *testing.T) {
	_, err := Resolve("websocket", map[string]string{})
	require.Error(t, err)
}
