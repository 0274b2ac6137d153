package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func hookIDs(t *testing.T, content string) []string {
	t.Helper()
	var cfg preCommitConfig
	require.NoError(t, yaml.Unmarshal([]byte(content), &cfg))
	var ids []string
	for _, r := range cfg.Repos {
		for _, h := range r.Hooks {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

func TestApplySectionCreate(t *testing.T) {
	t.Parallel()

	got, err := applySection("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "repos:\n"+sentinelStart+"\n"))
	assert.True(t, strings.HasSuffix(got, sentinelEnd+"\n"))
	assert.Equal(t, []string{"dupcheck-methods", "dupcheck-ids"}, hookIDs(t, got))
}

func TestApplySectionPrependsToRepos(t *testing.T) {
	t.Parallel()

	existing := `default_stages: [pre-commit]
repos:
  - repo: https://github.com/psf/black
    rev: 24.3.0
    hooks:
      - id: black
`
	got, err := applySection(existing)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "default_stages: [pre-commit]\nrepos:\n  "+sentinelStart+"\n"))
	assert.Contains(t, got, "  - repo: https://github.com/psf/black\n")
	assert.Equal(t, []string{"dupcheck-methods", "dupcheck-ids", "black"}, hookIDs(t, got))
}

func TestApplySectionUnindentedRepos(t *testing.T) {
	t.Parallel()

	existing := "repos:\n- repo: local\n  hooks:\n  - id: other\n    name: other\n    entry: other\n    language: system\n"
	got, err := applySection(existing)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "repos:\n"+sentinelStart+"\n- repo: local\n"))
	assert.Equal(t, []string{"dupcheck-methods", "dupcheck-ids", "other"}, hookIDs(t, got))
}

func TestApplySectionNoRepos(t *testing.T) {
	t.Parallel()

	existing := "fail_fast: true"
	got, err := applySection(existing)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "fail_fast: true\n\nrepos:\n"))
	assert.Equal(t, []string{"dupcheck-methods", "dupcheck-ids"}, hookIDs(t, got))
}

func TestApplySectionUpdate(t *testing.T) {
	t.Parallel()

	before := "repos:\n  " + sentinelStart + "\n"
	after := "\n  - repo: local\n    hooks:\n      - id: mine\n"
	old := before + "  - repo: local\n    hooks:\n      - id: stale\n  " + sentinelEnd + after

	got, err := applySection(old)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, sentinelEnd+after))
	assert.NotContains(t, got, "stale")
	assert.Equal(t, []string{"dupcheck-methods", "dupcheck-ids", "mine"}, hookIDs(t, got))
}

func TestApplySectionIdempotent(t *testing.T) {
	t.Parallel()

	for _, existing := range []string{
		"",
		"repos:\n  - repo: local\n    hooks:\n      - id: mine\n",
		"minimum_pre_commit_version: '3.0'\n",
	} {
		first, err := applySection(existing)
		require.NoError(t, err)
		second, err := applySection(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestApplySectionRejectsFlowRepos(t *testing.T) {
	t.Parallel()

	_, err := applySection("repos: []\n")
	assert.Error(t, err)
}

func TestRunInitCreatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".pre-commit-config.yaml")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"init", path}, &stdout, &stderr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), sentinelStart)
	assert.Contains(t, stderr.String(), "wrote dupcheck hooks to")
	assert.Empty(t, stdout.String())

	// A second run leaves the file byte-identical.
	require.NoError(t, run(context.Background(), []string{"init", path}, &stdout, &stderr))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRunInitDryRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".pre-commit-config.yaml")
	original := "repos:\n  - repo: local\n    hooks:\n      - id: mine\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"init", "--dry-run", path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), sentinelStart)
	assert.Contains(t, stdout.String(), "id: mine")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRunInitDryRunNoPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"init", "--dry-run"}, &stdout, &stderr))

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, sentinelStart+"\n- repo: local\n"))
	assert.True(t, strings.HasSuffix(out, sentinelEnd+"\n"))
	assert.Contains(t, out, "entry: dupcheck methods")
	assert.Contains(t, out, "entry: dupcheck ids")
}
