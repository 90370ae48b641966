package gitops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvst/internal/config"
)

func testGitConfig() config.GitConfig {
	return config.GitConfig{
		BranchPrefix: "nvst/",
		Remote:       "origin",
		CreatePR:     true,
	}
}

func TestClient_Finalize(t *testing.T) {
	runner := &MockRunner{
		Outputs: []string{"", "", "", "", "https://github.com/acme/reelpod/pull/7"},
	}
	c := NewClientWithRunner(testGitConfig(), runner)

	url, err := c.Finalize(context.Background(), "reelpod", "Automated workflow changes")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/reelpod/pull/7", url)
	require.Len(t, runner.Commands, 5)
	assert.Equal(t, []string{"git", "checkout", "-b", "nvst/reelpod"}, runner.Commands[0])
	assert.Equal(t, []string{"git", "add", "-A"}, runner.Commands[1])
	assert.Equal(t, []string{"git", "commit", "-m", "Automated workflow changes"}, runner.Commands[2])
	assert.Equal(t, []string{"git", "push", "-u", "origin", "nvst/reelpod"}, runner.Commands[3])
	assert.Equal(t, "gh", runner.Commands[4][0])
	assert.Contains(t, runner.Commands[4], "--title")
}

func TestClient_Finalize_WithoutPR(t *testing.T) {
	cfg := testGitConfig()
	cfg.CreatePR = false
	runner := &MockRunner{}
	c := NewClientWithRunner(cfg, runner)

	url, err := c.Finalize(context.Background(), "reelpod", "msg")
	require.NoError(t, err)

	assert.Empty(t, url)
	require.Len(t, runner.Commands, 4)
	for _, argv := range runner.Commands {
		assert.Equal(t, "git", argv[0])
	}
}

func TestClient_Finalize_StopsOnFailure(t *testing.T) {
	runner := &MockRunner{FailOn: "commit"}
	c := NewClientWithRunner(testGitConfig(), runner)

	_, err := c.Finalize(context.Background(), "reelpod", "msg")
	require.Error(t, err)

	// checkout, add, commit ran; push and gh did not.
	assert.Len(t, runner.Commands, 3)
}

func TestClient_CreatePR_ParsesURL(t *testing.T) {
	runner := &MockRunner{
		Outputs: []string{"Creating pull request for nvst/reelpod into main\nhttps://github.com/acme/reelpod/pull/12"},
	}
	c := NewClientWithRunner(testGitConfig(), runner)

	url, err := c.CreatePR(context.Background(), "title", "body")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/reelpod/pull/12", url)
}

func TestClient_BranchName(t *testing.T) {
	c := NewClientWithRunner(testGitConfig(), &MockRunner{})
	assert.Equal(t, "nvst/reelpod", c.BranchName("reelpod"))
}
