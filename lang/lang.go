package lang

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Catalog holds the active language block of a messages file.
type Catalog struct {
	mu       sync.RWMutex
	active   string
	messages map[string]string
}

// New returns a catalog seeded from the built-in messages.
func New() *Catalog {
	c := &Catalog{messages: map[string]string{}}
	if err := c.parse(defaultMessages); err != nil {
		panic(fmt.Sprintf("lang: built-in messages: %v", err))
	}
	return c
}

// Load overlays path on top of the built-in messages. Keys missing from the
// file keep their built-in text.
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := c.parse(data); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Info("Loaded language file", "component", "lang", "path", path, "language", c.Language(), "keys", c.Len())
	return nil
}

func (c *Catalog) parse(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	active := "en"
	if s, ok := raw["active_language"].(string); ok && s != "" {
		active = s
	}

	block, ok := raw[active]
	if !ok {
		if active == "en" {
			return fmt.Errorf("language block %q missing", active)
		}
		slog.Warn("Language not found, falling back to en", "component", "lang", "language", active)
		active = "en"
		if block, ok = raw[active]; !ok {
			return fmt.Errorf("language block %q missing", active)
		}
	}

	blockMap, ok := block.(map[string]any)
	if !ok {
		return fmt.Errorf("language block %q is not a map", active)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range blockMap {
		if s, ok := v.(string); ok {
			c.messages[k] = s
		}
	}
	c.active = active
	return nil
}

func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// T renders key, substituting {name} placeholders from name/value pairs.
// Unknown keys render as "{key}".
func (c *Catalog) T(key string, pairs ...string) string {
	c.mu.RLock()
	s, ok := c.messages[key]
	c.mu.RUnlock()

	if !ok {
		return "{" + key + "}"
	}

	for j := 0; j+1 < len(pairs); j += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[j]+"}", pairs[j+1])
	}
	return s
}
