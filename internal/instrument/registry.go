package instrument

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"igbridge/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// catalogSchema validates the shape of an instrument catalog file before any
// rule is decoded, so a typo in a field name fails loudly instead of silently
// producing a zero offset.
const catalogSchema = `{
  "type": "object",
  "required": ["instruments"],
  "properties": {
    "instruments": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["display_name", "search_term", "tickers", "policy"],
        "properties": {
          "display_name": {"type": "string", "minLength": 1},
          "search_term": {"type": "string", "minLength": 1},
          "class": {"type": "string"},
          "size_multiplier": {"type": "number", "exclusiveMinimum": 0},
          "stop_offset": {"type": "number", "minimum": 0},
          "limit_offset": {"type": "number", "minimum": 0},
          "price_adjust": {"type": "number"},
          "point_size": {"type": "number", "exclusiveMinimum": 0},
          "currency": {"type": "string"},
          "policy": {"enum": ["flip_on_opposite", "explicit_close"]},
          "on_duplicate": {"enum": ["reject", "success"]},
          "tickers": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          }
        },
        "additionalProperties": false
      }
    }
  }
}`

var compileSchemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("catalog.schema.json", catalogSchema)
})

// ChangeListener fires after the registry installs a reloaded catalog.
type ChangeListener func(*Catalog)

// Registry wraps a Catalog loaded from a YAML file and keeps it fresh via
// viper's fsnotify watcher. A reload that fails validation keeps the previous
// catalog in place.
type Registry struct {
	path    string
	v       *viper.Viper
	catalog *Catalog

	mu        sync.Mutex
	loadedAt  time.Time
	listeners []ChangeListener
}

// NewRegistry reads the catalog file at path and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("instrument registry requires a path")
	}
	rules, err := loadRulesFile(path)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(rules)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read instrument catalog failed: %w", err)
	}
	r := &Registry{path: path, v: v, catalog: catalog, loadedAt: time.Now()}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("instrument catalog reload failed, keeping previous rules: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Catalog returns the live catalog. The pointer is stable across reloads;
// Replace swaps its contents atomically.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// OnChange registers a listener invoked after each successful reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	rules, err := loadRulesFile(r.path)
	if err != nil {
		return err
	}
	if err := r.catalog.Replace(rules); err != nil {
		return err
	}
	r.mu.Lock()
	r.loadedAt = time.Now()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.Unlock()
	logger.Infof("instrument catalog reloaded: %d instruments", len(rules))
	for _, fn := range listeners {
		fn(r.catalog)
	}
	return nil
}

// loadRulesFile parses and schema-validates a catalog YAML file.
func loadRulesFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instrument catalog failed: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules decodes catalog YAML into validated rules.
func ParseRules(raw []byte) ([]Rule, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("instrument catalog is not valid YAML: %w", err)
	}
	schema, err := compileSchemaOnce()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(normalizeYAML(doc)); err != nil {
		return nil, fmt.Errorf("instrument catalog failed schema validation: %w", err)
	}
	var file struct {
		Instruments []Rule `yaml:"instruments"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode instrument catalog failed: %w", err)
	}
	for i := range file.Instruments {
		if file.Instruments[i].SizeMultiplier == 0 {
			file.Instruments[i].SizeMultiplier = 1
		}
		if file.Instruments[i].PointSize == 0 {
			file.Instruments[i].PointSize = 1
		}
	}
	return file.Instruments, nil
}

// normalizeYAML converts yaml.v3's map[string]any/any trees into the
// JSON-compatible values the schema validator expects.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}
