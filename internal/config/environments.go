package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cfi/selfservice/internal/model"
)

// Catalogue is the immutable set of environments known to the portal,
// ordered by rank. It is loaded once at startup.
type Catalogue struct {
	envs []model.Environment
}

type catalogueFile struct {
	Environments []model.Environment `yaml:"environments"`
}

// defaultEnvironments mirrors the three environments every deployment has.
// Their secret references come from DEA_*_ENVIRONMENT_URL_NAME / _KEY.
var defaultEnvironments = []struct {
	name   string
	prefix string
}{
	{"Test", "DEA_TEST"},
	{"Development", "DEA_DEV"},
	{"Production", "DEA_PROD"},
}

// LoadCatalogue reads the environment catalogue from cfg.EnvironmentsFile,
// or builds the default one from environment variables when no file is set.
func LoadCatalogue(cfg *Config) (*Catalogue, error) {
	if cfg.EnvironmentsFile == "" {
		var envs []model.Environment
		for i, d := range defaultEnvironments {
			envs = append(envs, model.Environment{
				Name: d.name,
				URLSecret: model.SecretRef{
					Name: getEnv(d.prefix+"_ENVIRONMENT_URL_NAME", ""),
					Key:  getEnv(d.prefix+"_ENVIRONMENT_URL_KEY", ""),
				},
				Rank: i,
			})
		}
		return NewCatalogue(envs)
	}

	data, err := os.ReadFile(cfg.EnvironmentsFile)
	if err != nil {
		return nil, fmt.Errorf("read environments file: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue parses a YAML catalogue document.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse environments file: %w", err)
	}
	return NewCatalogue(f.Environments)
}

func NewCatalogue(envs []model.Environment) (*Catalogue, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("environment catalogue is empty")
	}
	seen := make(map[string]bool, len(envs))
	out := make([]model.Environment, 0, len(envs))
	for _, e := range envs {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("environment with empty name")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate environment %q", e.Name)
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return &Catalogue{envs: out}, nil
}

// All returns a copy of the environments in rank order.
func (c *Catalogue) All() []model.Environment {
	out := make([]model.Environment, len(c.envs))
	copy(out, c.envs)
	return out
}

func (c *Catalogue) Names() []string {
	names := make([]string, len(c.envs))
	for i, e := range c.envs {
		names[i] = e.Name
	}
	return names
}

func (c *Catalogue) Lookup(name string) (model.Environment, bool) {
	for _, e := range c.envs {
		if e.Name == name {
			return e, true
		}
	}
	return model.Environment{}, false
}

// Precedence returns the display position of an environment. Unknown
// environments sort after every known one.
func (c *Catalogue) Precedence(name string) int {
	for i, e := range c.envs {
		if e.Name == name {
			return i
		}
	}
	return len(c.envs)
}
