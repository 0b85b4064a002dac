package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFile is the optional project file that marks a Strata root.
const ConfigFile = "strata.yaml"

// FindRoot looks upwards from startDir for a data root indicator:
// a .strata directory or a strata.yaml file.
// It returns the absolute path of the first directory that has one.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ".strata") || hasFile(dir, ConfigFile) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
