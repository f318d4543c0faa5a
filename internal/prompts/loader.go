// Package prompts holds the LLM prompt templates used for ingestion and
// refinement. Each embedded JSON file maps template keys to text with
// {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var (
	mu     sync.RWMutex
	loaded = map[string]map[string]string{}
)

// placeholder matches {{.Name}}.
var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z]+)\}\}`)

func file(filename string) (map[string]string, error) {
	mu.RLock()
	templates, ok := loaded[filename]
	mu.RUnlock()
	if ok {
		return templates, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	mu.Lock()
	loaded[filename] = templates
	mu.Unlock()
	return templates, nil
}

// Get returns the raw template stored under key in filename, e.g.
// Get("refine.json", "write-resume").
func Get(filename, key string) (string, error) {
	templates, err := file(filename)
	if err != nil {
		return "", err
	}
	t, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return t, nil
}

// Format substitutes data into template. Placeholders without a value are
// left in place.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "{{."), "}}")
		if v, ok := data[name]; ok {
			return v
		}
		return m
	})
}

// Render looks up a template and fills it. A placeholder without a value in
// data is an error.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if _, ok := data[m[1]]; !ok {
			return "", fmt.Errorf("prompt %s/%s: no value for %s", filename, key, m[0])
		}
	}
	return Format(template, data), nil
}
