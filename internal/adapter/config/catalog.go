package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

// catalogFile is the on-disk shape of a register catalog.
type catalogFile struct {
	Fields []domain.FieldDescriptor `yaml:"fields"`
}

// LoadCatalog reads field descriptors from a YAML file and builds a
// validated register map. An empty path selects the built-in Heliotherm
// catalog.
func LoadCatalog(path string) (*domain.RegisterMap, error) {
	if path == "" {
		return domain.NewRegisterMap(domain.DefaultCatalog())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no fields", path)
	}

	return domain.NewRegisterMap(file.Fields)
}
