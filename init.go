package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	sentinelStart = "# dupcheck:start"
	sentinelEnd   = "# dupcheck:end"

	defaultPreCommitConfig = ".pre-commit-config.yaml"
)

var reposKeyRe = regexp.MustCompile(`(?m)^repos:[ \t]*(?:#.*)?$`)

type preCommitHook struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Entry         string `yaml:"entry"`
	Language      string `yaml:"language"`
	Files         string `yaml:"files"`
	PassFilenames bool   `yaml:"pass_filenames"`
}

type preCommitRepo struct {
	Repo  string          `yaml:"repo"`
	Hooks []preCommitHook `yaml:"hooks"`
}

type preCommitConfig struct {
	Repos []preCommitRepo `yaml:"repos"`
}

var dupcheckRepo = preCommitRepo{
	Repo: "local",
	Hooks: []preCommitHook{
		{
			ID:            "dupcheck-methods",
			Name:          "duplicated model methods",
			Entry:         "dupcheck methods",
			Language:      "system",
			Files:         `\.py$`,
			PassFilenames: false,
		},
		{
			ID:            "dupcheck-ids",
			Name:          "duplicated record ids",
			Entry:         "dupcheck ids",
			Language:      "system",
			Files:         `(\.xml|__manifest__\.py)$`,
			PassFilenames: false,
		},
	},
}

// newInitCommand creates `dupcheck init`, which writes (or updates) the
// dupcheck hooks in a pre-commit configuration file.
func newInitCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path-to-.pre-commit-config.yaml]",
		Short: "Add dupcheck hooks to a pre-commit configuration",
		Long: `Add the dupcheck hooks to a pre-commit configuration file. The hooks are
wrapped in sentinel comments so they can be updated in place on subsequent
runs without touching surrounding content. Creates the file if it does not
exist.

The path defaults to ./` + defaultPreCommitConfig + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			// --dry-run with no path: just print the block itself.
			if dryRun && len(args) == 0 {
				block, err := hookBlock("")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, block)
				return err
			}

			path := defaultPreCommitConfig
			if len(args) > 0 {
				path = args[0]
			}

			existing, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated, err := applySection(string(existing))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if dryRun {
				_, err = fmt.Fprint(stdout, updated)
				return err
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(stderr, "wrote dupcheck hooks to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// hookBlock renders the sentinel-wrapped hook entry with every line
// prefixed by indent.
func hookBlock(indent string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode([]preCommitRepo{dupcheckRepo}); err != nil {
		return "", fmt.Errorf("rendering hooks: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("rendering hooks: %w", err)
	}

	lines := []string{indent + sentinelStart}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		lines = append(lines, indent+line)
	}
	lines = append(lines, indent+sentinelEnd)
	return strings.Join(lines, "\n"), nil
}

// applySection inserts the hook block into content. An existing sentinel
// block is replaced in place; otherwise the block becomes the first entry
// of the repos list, which is created when missing. The result must still
// be a valid pre-commit configuration.
func applySection(content string) (string, error) {
	var updated string

	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	switch loc := reposKeyRe.FindStringIndex(content); {
	case start >= 0 && end > start:
		lineStart := strings.LastIndex(content[:start], "\n") + 1
		block, err := hookBlock(content[lineStart:start])
		if err != nil {
			return "", err
		}
		updated = content[:lineStart] + block + content[end+len(sentinelEnd):]

	case loc != nil:
		head, rest := content[:loc[1]], content[loc[1]:]
		rest = strings.TrimPrefix(rest, "\n")
		block, err := hookBlock(sequenceIndent(rest))
		if err != nil {
			return "", err
		}
		updated = head + "\n" + block + "\n" + rest

	default:
		block, err := hookBlock("")
		if err != nil {
			return "", err
		}
		if len(content) > 0 {
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			content += "\n"
		}
		updated = content + "repos:\n" + block + "\n"
	}

	if err := validateHooks(updated); err != nil {
		return "", err
	}
	return updated, nil
}

// sequenceIndent returns the indentation of the first list item in rest,
// skipping blank and comment lines.
func sequenceIndent(rest string) string {
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			return line[:len(line)-len(trimmed)]
		}
		break
	}
	return ""
}

func validateHooks(content string) error {
	var cfg preCommitConfig
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return fmt.Errorf("updated configuration is not valid YAML: %w", err)
	}
	for _, r := range cfg.Repos {
		for _, h := range r.Hooks {
			if h.ID == dupcheckRepo.Hooks[0].ID {
				return nil
			}
		}
	}
	return errors.New("updated configuration does not contain the dupcheck hooks")
}
