// Package registryfile reads the YAML or JSON files that declare jobs and
// publishers.
package registryfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	exts []string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{exts: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
	{exts: []string{".json"}, fn: json.Unmarshal},
}

// Load reads the file at path into out. what names the file in errors
// ("jobs", "publishers").
func Load(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", what)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", what, err)
	}
	if err := Decode(raw, filepath.Ext(path), out); err != nil {
		return fmt.Errorf("%s file: %w", what, err)
	}
	return nil
}

// Decode unmarshals data with the decoder matching ext. An empty ext tries
// YAML first, then JSON.
func Decode(data []byte, ext string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))

	var errs []error
	for _, d := range decoders {
		if ext != "" && !matches(d.exts, ext) {
			continue
		}
		err := d.fn(data, out)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return fmt.Errorf("unsupported extension %q (expected .yaml, .yml or .json)", ext)
	}
	return fmt.Errorf("format not recognized: %w", errors.Join(errs...))
}

func matches(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
