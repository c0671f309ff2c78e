// Package plugins implements the plugin registry: manifest loading and
// validation, and the live plugin-session registration state machine.
// Grounded on original_source/src-tauri/src/plugin/manifest.rs and
// plugin/mod.rs (loader).
package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manifest describes a loaded plugin: its identity, category, and the
// actions it implements. Source format is manifest.json — see
// SPEC_FULL.md's "Plugin manifest & loader" section for why JSON
// stands in for the original TOML schema.
type Manifest struct {
	Plugin struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Version     string   `json:"version"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		Icon        string   `json:"icon"`
	} `json:"plugin"`
	Category struct {
		Label string `json:"label"`
		Icon  string `json:"icon"`
	} `json:"category"`
	Actions map[string]ManifestAction `json:"actions"`

	// Dir is the plugin's directory on disk, set by the loader (not
	// part of the manifest file itself).
	Dir string `json:"-"`
}

// ManifestAction is one action entry under a manifest's [actions.*].
type ManifestAction struct {
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// validateID checks the dot-segmented plugin-id rule: each segment is
// ASCII-alpha-initial, alphanumeric/-/_ thereafter, no trailing
// separator.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if id[len(id)-1] == '.' || id[len(id)-1] == '-' || id[len(id)-1] == '_' {
		return fmt.Errorf("id %q ends with a separator", id)
	}
	segment := make([]byte, 0, len(id))
	flush := func() error {
		if len(segment) == 0 {
			return fmt.Errorf("id %q has an empty segment", id)
		}
		c := segment[0]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return fmt.Errorf("id %q segment %q must start with an ASCII letter", id, segment)
		}
		for _, c := range segment[1:] {
			if !isAlnumDashUnderscore(c) {
				return fmt.Errorf("id %q segment %q has an invalid character", id, segment)
			}
		}
		return nil
	}
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			if err := flush(); err != nil {
				return err
			}
			segment = segment[:0]
			continue
		}
		segment = append(segment, id[i])
	}
	return flush()
}

// validateActionID checks a single-segment action id (no dots).
func validateActionID(id string) error {
	if id == "" {
		return fmt.Errorf("empty action id")
	}
	for _, c := range id {
		if c == '.' {
			return fmt.Errorf("action id %q must not contain '.'", id)
		}
	}
	return validateID(id)
}

func isAlnumDashUnderscore(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

// LoadDir scans dir for one-level-deep plugin subdirectories, each
// containing a manifest.json, and returns every manifest that passes
// validation. Invalid manifests are skipped with a warning and do not
// block the rest of the scan.
func LoadDir(dir string) []Manifest {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("[Plugins] failed to scan plugin directory", "dir", dir, "error", err)
		}
		return nil
	}

	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "manifest.json")

		data, err := os.ReadFile(manifestPath)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("[Plugins] failed to read manifest", "path", manifestPath, "error", err)
			}
			continue
		}

		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			slog.Warn("[Plugins] failed to parse manifest", "path", manifestPath, "error", err)
			continue
		}
		m.Dir = pluginDir

		if err := validateManifest(m); err != nil {
			slog.Warn("[Plugins] invalid manifest, skipping", "path", manifestPath, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out
}

func validateManifest(m Manifest) error {
	if err := validateID(m.Plugin.ID); err != nil {
		return err
	}
	if m.Plugin.Name == "" {
		return fmt.Errorf("plugin.name is empty")
	}
	if m.Plugin.Version == "" {
		return fmt.Errorf("plugin.version is empty")
	}
	if m.Category.Label == "" {
		return fmt.Errorf("category.label is empty")
	}
	for actionID := range m.Actions {
		if err := validateActionID(actionID); err != nil {
			return err
		}
	}
	return nil
}
