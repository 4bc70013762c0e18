package configx

import (
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// yamlParser decodes YAML through its JSON form so values have the same types as JSON input.
type yamlParser struct{}

func (yamlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}

func (yamlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	b, err := yaml.Marshal(m)
	return b, errors.WithStack(err)
}

type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	tree, err := toml.LoadBytes(b)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return tree.ToMap(), nil
}

func (tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	tree, err := toml.TreeFromMap(m)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	b, err := tree.Marshal()
	return b, errors.WithStack(err)
}

// parserFor picks a parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlParser{}, nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return tomlParser{}, nil
	default:
		return nil, errors.Errorf("unsupported config file format %q, expected .yaml, .yml, .json or .toml", path)
	}
}
