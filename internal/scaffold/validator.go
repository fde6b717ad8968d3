package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/murdash/internal/config"
)

// CheckExisting checks if murdash.yml or .env.example already exist in dir
// Returns an error if they do, nil otherwise
func CheckExisting(dir string) error {
	var existingFiles []string

	for _, name := range []string{config.DefaultFile, EnvExampleFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			existingFiles = append(existingFiles, name)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("murdash already initialized\n\nFound existing")
	if len(existingFiles) == 1 {
		fmt.Fprintf(&b, ": %s\n", existingFiles[0])
	} else {
		b.WriteString(" files:\n")
		for _, file := range existingFiles {
			fmt.Fprintf(&b, "  - %s\n", file)
		}
	}
	b.WriteString("\nUse 'murdash init --force' to reinitialize (this will overwrite existing configuration)")

	return fmt.Errorf("%s", b.String())
}
