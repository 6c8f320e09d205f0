package route

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WriteFile writes a route to a YAML file.
func WriteFile(r *Route, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a route from a YAML file.
func ReadFile(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Route
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}

	return &r, nil
}
