package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidName = errors.New("invalid preset name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

var extensions = []string{".yaml", ".yml"}

// Assignment is one parameter value of a preset, kept as the raw YAML scalar
// so it can be parsed against the parameter kind.
type Assignment struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

type Preset struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Values      []Assignment `json:"values"`
	Path        string       `json:"-"`
}

type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
	logger      *zap.Logger
}

func NewLoader(searchPaths []string, logger *zap.Logger) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
		logger:      logger,
	}, nil
}

// Load finds <name>.yaml in the search paths. The first match wins.
func (l *Loader) Load(name string) (*Preset, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	// Cache-Check
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*Preset), nil
	}

	var data []byte
	var foundPath string

search:
	for _, searchPath := range l.searchPaths {
		for _, ext := range extensions {
			fullPath := filepath.Join(searchPath, name+ext)
			b, err := os.ReadFile(fullPath)
			if err == nil {
				data, foundPath = b, fullPath
				break search
			}
		}
	}

	if data == nil {
		return nil, fmt.Errorf("%w: %s (searched in: %v)", ErrNotFound, name, l.searchPaths)
	}

	preset, err := l.parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", foundPath, err)
	}
	preset.Path = foundPath

	l.cache.Store(name, preset)
	l.logger.Debug("Preset loaded", zap.String("name", name), zap.String("path", foundPath))

	return preset, nil
}

func (l *Loader) parse(name string, data []byte) (*Preset, error) {
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to convert preset: %w", err)
	}
	if err := l.validator.ValidatePreset(asJSON); err != nil {
		return nil, err
	}

	var doc struct {
		Description string    `yaml:"description"`
		Values      yaml.Node `yaml:"values"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	preset := &Preset{Name: name, Description: doc.Description}

	// mapping node content alternates key and value; file order is kept
	content := doc.Values.Content
	for i := 0; i+1 < len(content); i += 2 {
		preset.Values = append(preset.Values, Assignment{
			Parameter: content[i].Value,
			Value:     content[i+1].Value,
		})
	}
	return preset, nil
}

// List returns all presets found in the search paths, sorted by name. A name
// shadowed by an earlier search path is listed once. Invalid files are
// skipped with a warning.
func (l *Loader) List() ([]*Preset, error) {
	seen := make(map[string]bool)
	out := make([]*Preset, 0)

	for _, searchPath := range l.searchPaths {
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", searchPath, err)
		}

		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if seen[name] || !namePattern.MatchString(name) {
				continue
			}
			seen[name] = true

			preset, err := l.Load(name)
			if err != nil {
				l.logger.Warn("Skipping invalid preset", zap.String("name", name), zap.Error(err))
				continue
			}
			out = append(out, preset)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}
