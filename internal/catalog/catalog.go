// Package catalog loads the shop items and writing prompts offered to the journal.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrUnknownItem    = errors.New("unknown item")
	ErrCostMismatch   = errors.New("cost mismatch")
	ErrNoPrompts      = errors.New("no prompts available")
)

// Item is a cosmetic offered in the shop.
type Item struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Cost int64  `yaml:"cost" json:"cost"`
}

type document struct {
	Items   []Item   `yaml:"items"`
	Prompts []string `yaml:"prompts"`
}

// Catalog is an immutable set of items and prompts.
type Catalog struct {
	items   []Item
	index   map[string]Item
	prompts []string
	pick    func(n int) int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPicker replaces the random index source used by RandomPrompt.
func WithPicker(pick func(n int) int) Option {
	return func(catalog *Catalog) {
		catalog.pick = pick
	}
}

// Default returns the catalog embedded in the binary.
func Default(options ...Option) (*Catalog, error) {
	return Parse(defaultCatalog, options...)
}

// Load reads a YAML catalog from path, or returns the embedded catalog when path is empty.
func Load(path string, options ...Option) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(options...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, options...)
}

// Parse decodes and validates a YAML catalog. Unknown fields are rejected.
// The default cosmetic must be listed and must be free.
func Parse(data []byte, options ...Option) (*Catalog, error) {
	var parsed document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	catalog := &Catalog{index: make(map[string]Item, len(parsed.Items)), pick: rand.IntN}
	for position, item := range parsed.Items {
		item.ID = strings.TrimSpace(item.ID)
		item.Name = strings.TrimSpace(item.Name)
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrInvalidCatalog, position)
		}
		if item.Cost < 0 {
			return nil, fmt.Errorf("%w: item %s has a negative cost", ErrInvalidCatalog, item.ID)
		}
		if _, exists := catalog.index[item.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate item %s", ErrInvalidCatalog, item.ID)
		}
		if item.Name == "" {
			item.Name = item.ID
		}
		catalog.index[item.ID] = item
		catalog.items = append(catalog.items, item)
	}
	defaultItem, ok := catalog.index[journal.DefaultCosmetic]
	if !ok || defaultItem.Cost != 0 {
		return nil, fmt.Errorf("%w: default item %s must be listed with cost 0", ErrInvalidCatalog, journal.DefaultCosmetic)
	}
	for _, prompt := range parsed.Prompts {
		if trimmed := strings.TrimSpace(prompt); trimmed != "" {
			catalog.prompts = append(catalog.prompts, trimmed)
		}
	}
	for _, option := range options {
		if option != nil {
			option(catalog)
		}
	}
	if catalog.pick == nil {
		return nil, fmt.Errorf("%w: prompt picker is nil", ErrInvalidCatalog)
	}
	return catalog, nil
}

// Items returns every item in catalog order.
func (catalog *Catalog) Items() []Item {
	return append([]Item(nil), catalog.items...)
}

// Item looks up an item by id.
func (catalog *Catalog) Item(id string) (Item, error) {
	item, ok := catalog.index[strings.TrimSpace(id)]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return item, nil
}

// ResolveCost returns the listed price of id. A supplied price must match it.
func (catalog *Catalog) ResolveCost(id string, supplied *int64) (int64, error) {
	item, err := catalog.Item(id)
	if err != nil {
		return 0, err
	}
	if supplied != nil && *supplied != item.Cost {
		return 0, fmt.Errorf("%w: %s costs %d, got %d", ErrCostMismatch, item.ID, item.Cost, *supplied)
	}
	return item.Cost, nil
}

// Prompts returns every writing prompt.
func (catalog *Catalog) Prompts() []string {
	return append([]string(nil), catalog.prompts...)
}

// RandomPrompt returns one prompt chosen at random.
func (catalog *Catalog) RandomPrompt() (string, error) {
	if len(catalog.prompts) == 0 {
		return "", ErrNoPrompts
	}
	return catalog.prompts[catalog.pick(len(catalog.prompts))], nil
}
