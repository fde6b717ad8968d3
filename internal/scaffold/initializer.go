package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/murdash/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// EnvExampleFile is the sample environment file written next to murdash.yml
const EnvExampleFile = ".env.example"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter murdash.yml and .env.example into dir.
// If force is true, existing files are overwritten.
func Initialize(dir string, force bool) error {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// getTemplateFiles reads all template files
func getTemplateFiles(dir string) ([]FileInfo, error) {
	configYml, err := templatesFS.ReadFile("templates/murdash.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read murdash.yml template: %w", err)
	}

	envExample, err := templatesFS.ReadFile("templates/env.example.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read .env.example template: %w", err)
	}

	return []FileInfo{
		{Path: filepath.Join(dir, config.DefaultFile), Content: configYml, Permissions: 0644},
		{Path: filepath.Join(dir, EnvExampleFile), Content: envExample, Permissions: 0644},
	}, nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles checks that the written murdash.yml parses and validates
func validateCreatedFiles(dir string) error {
	content, err := os.ReadFile(filepath.Join(dir, config.DefaultFile))
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", config.DefaultFile, err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", config.DefaultFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultFile, err)
	}

	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(w io.Writer) {
	fmt.Fprintln(w, "\n✅ Successfully initialized murdash!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", config.DefaultFile)
	fmt.Fprintf(w, "  ✓ %s\n", EnvExampleFile)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Start a local mur daemon with 'mur serve', or set mode: demo")
	fmt.Fprintln(w, "  2. Run 'murdash detect' to check which backend is reachable")
	fmt.Fprintln(w, "  3. Run 'murdash watch' to follow live pattern updates")
}
