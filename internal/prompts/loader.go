// Package prompts carries the model prompt catalog for both pipeline
// stages. Each catalog file is a flat JSON object of key to prompt text,
// embedded so the binary needs no prompt files on disk.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// catalog caches parsed prompt files. Files are immutable once embedded,
// so an entry never changes after first load.
type catalog struct {
	mu    sync.Mutex
	files map[string]map[string]string
}

var defaultCatalog = &catalog{files: make(map[string]map[string]string)}

func (c *catalog) file(name string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entries, ok := c.files[name]; ok {
		return entries, nil
	}

	data, err := promptFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
	}

	c.files[name] = entries
	return entries, nil
}

// Get returns one prompt from a catalog file. The filename carries no path,
// only the base name, e.g. Get("composition.json", "compose-brief").
func Get(filename, key string) (string, error) {
	entries, err := defaultCatalog.file(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the pipeline cannot run without; a missing
// entry is a build defect, so it panics.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format substitutes {{.Key}} placeholders with the given values.
// Placeholders without a value stay in the output unchanged.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ClearCache drops every cached catalog file. Test use only.
func ClearCache() {
	defaultCatalog.mu.Lock()
	defaultCatalog.files = make(map[string]map[string]string)
	defaultCatalog.mu.Unlock()
}
