package kink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of a kink catalogue:
//
//	kinks:
//	  - name: Bondage
//	    description: Restraint with rope or cuffs
type SeedFile struct {
	Kinks []SeedEntry `yaml:"kinks"`
}

// SeedEntry is one catalogue row.
type SeedEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseSeedYAML decodes and validates a catalogue payload.
func ParseSeedYAML(data []byte) (SeedFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return SeedFile{}, errors.New("kink seed: payload is empty")
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SeedFile{}, fmt.Errorf("kink seed: decode: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Kinks))
	for i, e := range f.Kinks {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return SeedFile{}, fmt.Errorf("kink seed: entry %d has no name", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return SeedFile{}, fmt.Errorf("kink seed: duplicate name %q", name)
		}
		seen[key] = struct{}{}
	}
	return f, nil
}

// SeedFromFile registers every kink listed in path. A missing file is treated
// as "nothing to seed".
func (r *Registry) SeedFromFile(ctx context.Context, path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("kink seed file not found", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("kink seed: read %s: %w", path, err)
	}
	f, err := ParseSeedYAML(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range f.Kinks {
		if _, err := r.Register(ctx, e.Name, e.Description); err != nil {
			return 0, fmt.Errorf("kink seed: register %q: %w", e.Name, err)
		}
	}
	return len(f.Kinks), nil
}
