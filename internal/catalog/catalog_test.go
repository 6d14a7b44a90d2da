package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const customCatalog = `
items:
  - id: blue
    cost: 0
  - id: red
    name: Ruby
    cost: 3
prompts:
  - "first prompt"
  - "  "
  - "second prompt"
`

func mustParse(test *testing.T, data string, options ...Option) *Catalog {
	test.Helper()
	catalog, err := Parse([]byte(data), options...)
	if err != nil {
		test.Fatalf("parse failed: %v", err)
	}
	return catalog
}

func TestDefaultCatalog(test *testing.T) {
	test.Parallel()
	catalog, err := Default()
	if err != nil {
		test.Fatalf("default catalog: %v", err)
	}
	if len(catalog.Items()) < 2 || len(catalog.Prompts()) == 0 {
		test.Fatalf("default catalog is too small")
	}
	blue, err := catalog.Item("blue")
	if err != nil || blue.Cost != 0 {
		test.Fatalf("unexpected default item %+v err=%v", blue, err)
	}
}

func TestParseCustomCatalog(test *testing.T) {
	test.Parallel()
	catalog := mustParse(test, customCatalog, WithPicker(func(n int) int { return n - 1 }))
	items := catalog.Items()
	if len(items) != 2 || items[0].Name != "blue" || items[1].Name != "Ruby" {
		test.Fatalf("unexpected items %+v", items)
	}
	if prompts := catalog.Prompts(); len(prompts) != 2 {
		test.Fatalf("blank prompts must be dropped: %+v", prompts)
	}
	prompt, err := catalog.RandomPrompt()
	if err != nil || prompt != "second prompt" {
		test.Fatalf("unexpected prompt %q err=%v", prompt, err)
	}
}

func TestParseRejectsInvalidCatalogs(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		data string
	}{
		{name: "missing default", data: "items:\n  - id: red\n    cost: 3\n"},
		{name: "priced default", data: "items:\n  - id: blue\n    cost: 2\n"},
		{name: "duplicate item", data: "items:\n  - id: blue\n    cost: 0\n  - id: blue\n    cost: 0\n"},
		{name: "negative cost", data: "items:\n  - id: blue\n    cost: 0\n  - id: red\n    cost: -1\n"},
		{name: "blank id", data: "items:\n  - id: blue\n    cost: 0\n  - id: ' '\n    cost: 1\n"},
		{name: "unknown field", data: "items:\n  - id: blue\n    cost: 0\n    colour: navy\n"},
		{name: "not yaml", data: "items: [\n"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := Parse([]byte(testCase.data)); !errors.Is(err, ErrInvalidCatalog) {
				test.Fatalf("expected %v, got %v", ErrInvalidCatalog, err)
			}
		})
	}
}

func TestResolveCost(test *testing.T) {
	test.Parallel()
	catalog := mustParse(test, customCatalog)
	cost, err := catalog.ResolveCost("red", nil)
	if err != nil || cost != 3 {
		test.Fatalf("unexpected cost %d err=%v", cost, err)
	}
	matching := int64(3)
	if _, err := catalog.ResolveCost("red", &matching); err != nil {
		test.Fatalf("matching cost rejected: %v", err)
	}
	wrong := int64(1)
	if _, err := catalog.ResolveCost("red", &wrong); !errors.Is(err, ErrCostMismatch) {
		test.Fatalf("expected %v, got %v", ErrCostMismatch, err)
	}
	if _, err := catalog.ResolveCost("gold", nil); !errors.Is(err, ErrUnknownItem) {
		test.Fatalf("expected %v, got %v", ErrUnknownItem, err)
	}
}

func TestRandomPromptWithoutPrompts(test *testing.T) {
	test.Parallel()
	catalog := mustParse(test, "items:\n  - id: blue\n    cost: 0\n")
	if _, err := catalog.RandomPrompt(); !errors.Is(err, ErrNoPrompts) {
		test.Fatalf("expected %v, got %v", ErrNoPrompts, err)
	}
}

func TestLoadFromPath(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(customCatalog), 0o600); err != nil {
		test.Fatalf("write catalog: %v", err)
	}
	catalog, err := Load(path)
	if err != nil {
		test.Fatalf("load failed: %v", err)
	}
	if _, err := catalog.Item("red"); err != nil {
		test.Fatalf("item missing: %v", err)
	}
	if _, err := Load(filepath.Join(test.TempDir(), "missing.yaml")); err == nil {
		test.Fatalf("expected error for missing file")
	}
	if _, err := Load(""); err != nil {
		test.Fatalf("empty path must load the default catalog: %v", err)
	}
}
