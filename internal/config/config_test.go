package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "SatelliteQE", cfg.Org)
	assert.Equal(t, "robottelo", cfg.Repo)
	assert.Equal(t, "gathered-metrics", cfg.OutputPrefix)
	assert.Equal(t, MaxPageSize, cfg.PageSize)

	teams, ok := cfg.ReviewerTeams("satelliteqe", "Robottelo")
	require.True(t, ok)
	assert.Equal(t, ReviewerTeams{Tier1: "tier-1-reviewers", Tier2: "tier-2-reviewers"}, teams)
}

func TestLoadMergesSettingsAndSecrets(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "settings.yaml", `
gh_org: acme
gh_repo: widgets
page_size: 50
ignored_logins: [renovate]
reviewer_teams:
  acme/widgets:
    tier1: core
    tier2: maintainers
`)
	writeFile(t, dir, ".secrets.yaml", "gh_token: s3cret\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, "widgets", cfg.Repo)
	assert.Equal(t, "s3cret", cfg.Token)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, []string{"renovate"}, cfg.IgnoredUsers)

	teams, ok := cfg.ReviewerTeams("acme", "widgets")
	require.True(t, ok)
	assert.Equal(t, "core", teams.Tier1)

	_, ok = cfg.ReviewerTeams("SatelliteQE", "robottelo")
	assert.True(t, ok, "defaults survive file merge")
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", "gh_org: from-file\n")
	t.Setenv("METRICS_GH_ORG", "from-env")
	t.Setenv("METRICS_PR_COUNT", "25")
	t.Setenv("METRICS_GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "fallback")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Org)
	assert.Equal(t, 25, cfg.PRCount)
	assert.Equal(t, "fallback", cfg.Token)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, t.TempDir(), "bad.yaml", "page_size: [\n")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	big := writeFile(t, t.TempDir(), "big.yaml", "page_size: 500\n")
	_, err = Load(big)
	assert.ErrorContains(t, err, "page_size")

	t.Setenv("METRICS_PR_COUNT", "many")
	_, err = Load(writeFile(t, t.TempDir(), "ok.yaml", "gh_org: x\n"))
	assert.ErrorContains(t, err, "METRICS_PR_COUNT")
}

func TestReviewerTeamsMissing(t *testing.T) {
	cfg := Default()
	cfg.Teams["acme/half"] = ReviewerTeams{Tier1: "core"}

	_, ok := cfg.ReviewerTeams("acme", "nope")
	assert.False(t, ok)

	teams, ok := cfg.ReviewerTeams("acme", "half")
	assert.False(t, ok)
	assert.Equal(t, "core", teams.Tier1)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
