// Package envfile writes a project .env from a per-environment template.
//
// Environments are local, staging, and production. When no environment is
// given, the current git branch picks one: main maps to production, staging
// to staging, anything else (or no repository) to local.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvLocal      = "local"
	EnvStaging    = "staging"
	EnvProduction = "production"

	templateDir = "env-templates"
	targetName  = ".env"
)

// ValidEnvironments lists the accepted environment names.
var ValidEnvironments = []string{EnvLocal, EnvStaging, EnvProduction}

// Entry is a single KEY=VALUE pair parsed from a template.
type Entry struct {
	Key   string
	Value string
}

// Result describes a completed environment setup.
type Result struct {
	Environment  string
	TemplatePath string
	TargetPath   string
	Entries      []Entry
}

// ValidateEnvironment checks env against the accepted names.
func ValidateEnvironment(env string) error {
	for _, v := range ValidEnvironments {
		if env == v {
			return nil
		}
	}
	return fmt.Errorf("invalid environment %q (valid: %s)", env, strings.Join(ValidEnvironments, ", "))
}

// DetectEnvironment picks an environment from the git branch under root.
// Unrecognized branches and missing repositories fall back to local.
func DetectEnvironment(root string) string {
	head, err := os.ReadFile(filepath.Join(root, ".git", "HEAD"))
	if err != nil {
		return EnvLocal
	}
	branch := strings.TrimPrefix(strings.TrimSpace(string(head)), "ref: refs/heads/")
	switch branch {
	case "main":
		return EnvProduction
	case "staging":
		return EnvStaging
	default:
		return EnvLocal
	}
}

// Setup copies env-templates/env.<env>.template under root to root/.env.
// It fails when env is invalid or the template does not exist.
func Setup(root, env string) (*Result, error) {
	if err := ValidateEnvironment(env); err != nil {
		return nil, err
	}

	templatePath := filepath.Join(root, templateDir, fmt.Sprintf("env.%s.template", env))
	targetPath := filepath.Join(root, targetName)

	template, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("environment template %q not found at %s", env, templatePath)
		}
		return nil, fmt.Errorf("reading template: %w", err)
	}

	if err := os.WriteFile(targetPath, template, 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", targetName, err)
	}

	return &Result{
		Environment:  env,
		TemplatePath: templatePath,
		TargetPath:   targetPath,
		Entries:      parseEntries(string(template)),
	}, nil
}

// parseEntries extracts the template's KEY=VALUE pairs. godotenv handles
// quoting, comments, and export prefixes; the line scan restores the file
// order its map throws away.
func parseEntries(template string) []Entry {
	values, err := godotenv.Unmarshal(template)
	if err != nil {
		return nil
	}

	var entries []Entry
	for _, line := range strings.Split(template, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if value, found := values[key]; found {
			entries = append(entries, Entry{Key: key, Value: value})
		}
	}
	return entries
}
