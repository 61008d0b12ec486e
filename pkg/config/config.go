package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Config carries the resolver search configuration. Both lists are optional:
// StandardDirs replaces the built-in loader directories, LibraryPath is
// prepended to the directories taken from LD_LIBRARY_PATH.
type Config struct {
	StandardDirs []string `json:"standard-dirs,omitempty"`
	LibraryPath  []string `json:"library-path,omitempty"`
}

func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", file, err)
	}
	config := &Config{}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", file, err)
	}
	return config, nil
}

func Write(config *Config, file string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0660)
}
