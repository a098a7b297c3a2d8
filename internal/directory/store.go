package directory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/worq1337/parcer-sub001/internal/models"
)

// operatorsConfig is the on-disk structure of the operators YAML file.
type operatorsConfig struct {
	Operators []models.OperatorEntry `yaml:"operators"`
}

// Store loads operator entries from a YAML file. The file is maintained by
// the dictionary editor outside this process; the pipeline only reads it.
type Store struct {
	OperatorsFile string
}

// NewStore creates a store for the given operators file.
func NewStore(operatorsFile string) *Store {
	if operatorsFile == "" {
		operatorsFile = "operators.yaml"
	}
	return &Store{OperatorsFile: operatorsFile}
}

// FindConfigFile looks for a configuration file in standard locations.
func (s *Store) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("database", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "parcer", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadOperators reads and decodes the operators file. A missing file yields
// an empty directory, not an error: unknown operators are a valid state.
func (s *Store) LoadOperators() ([]models.OperatorEntry, error) {
	path, err := s.FindConfigFile(s.OperatorsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operators file %s: %w", path, err)
	}

	var cfg operatorsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse operators file %s: %w", path, err)
	}

	return cfg.Operators, nil
}
