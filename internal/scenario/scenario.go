package scenario

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/membrane/internal/shared/utils"
)

var (
	// ErrScenarioNotFound is returned for an unknown scenario ID.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrInvalidScenario is returned when a scenario definition is incomplete.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrDuplicateScenario is returned when one source defines an ID twice.
	ErrDuplicateScenario = errors.New("duplicate scenario")
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Scenario is a script pair run across a membrane. Foreign runs in a fresh
// realm; Host is the body of a function called in the long-lived host realm
// with the membrane-wrapped foreign global as `foreign` and a revoke
// function as `revoke`. Its return value is compared against Expect.
type Scenario struct {
	ID          string `json:"id" yaml:"id" toml:"id"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Foreign     string `json:"foreign" yaml:"foreign" toml:"foreign"`
	Host        string `json:"host" yaml:"host" toml:"host"`
	Expect      string `json:"expect,omitempty" yaml:"expect" toml:"expect"`
}

// Validate checks that the scenario can be run.
func (s Scenario) Validate() error {
	checks := []error{
		utils.ValidateID(s.ID, "id", true),
		utils.ValidateString(s.Title, "title", 1, utils.MaxTitleLength, false),
		utils.ValidateString(s.Description, "description", 1, utils.MaxDescriptionLength, false),
		utils.ValidateSize(s.Foreign, "foreign script", utils.MaxScriptSize),
		utils.ValidateSize(s.Host, "host script", utils.MaxScriptSize),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.ID, err)
		}
	}
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("%w: %s has no host script", ErrInvalidScenario, s.ID)
	}
	return nil
}

// Digest identifies the scenario's executable content. Runs record it so
// that replacing a scenario does not blur earlier results.
func (s Scenario) Digest() string {
	return utils.Short(utils.DefaultHasher().HashFields(s.Foreign, s.Host, s.Expect))
}

type document struct {
	Scenarios []Scenario `yaml:"scenarios" toml:"scenarios"`
}

// Parse decodes a catalog document. The format follows the file extension
// of name: .yaml and .yml are YAML, .toml is TOML.
func Parse(name string, data []byte) ([]Scenario, error) {
	var doc document
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported format", name)
	}

	seen := make(map[string]struct{}, len(doc.Scenarios))
	for _, s := range doc.Scenarios {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrDuplicateScenario, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return doc.Scenarios, nil
}

// Catalog is an ordered, concurrency-safe set of scenarios.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]Scenario
	order []string
}

// NewCatalog builds a catalog. Later scenarios replace earlier ones with
// the same ID.
func NewCatalog(scenarios ...Scenario) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Scenario, len(scenarios))}
	for _, s := range scenarios {
		if err := c.Put(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	scenarios, err := Parse("catalog.yaml", defaultCatalog)
	if err != nil {
		return nil, err
	}
	return NewCatalog(scenarios...)
}

// Load returns the built-in catalog extended by every .yaml, .yml and
// .toml file in dir. Files are read in name order and may override
// built-in scenarios. An empty dir loads only the built-ins.
func Load(dir string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return c, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".toml":
		default:
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		scenarios, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		for _, s := range scenarios {
			if err := c.Put(s); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Put adds or replaces a scenario.
func (c *Catalog) Put(s Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[s.ID]; !ok {
		c.order = append(c.order, s.ID)
	}
	c.byID[s.ID] = s
	return nil
}

// Get returns the scenario with the given ID.
func (c *Catalog) Get(id string) (Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s", ErrScenarioNotFound, id)
	}
	return s, nil
}

// List returns the scenarios in insertion order.
func (c *Catalog) List() []Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Scenario, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted scenario IDs.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
