package offline

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CacheNames are the three logical bucket names. Static and Current share a
// name, so the reaper keeps exactly one bucket after activation.
type CacheNames struct {
	Static  string
	Dynamic string
	Current string
}

func NamesForVersion(version string) CacheNames {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "v1"
	}
	current := "yokaidle-" + version
	return CacheNames{
		Static:  current,
		Dynamic: "yokaidle-dynamic-" + version,
		Current: current,
	}
}

// Manifest lists the assets the seeder stores on install.
type Manifest struct {
	Version string   `toml:"version"`
	Assets  []string `toml:"assets"`
	// Atomic stores nothing when any asset fails to fetch.
	Atomic bool `toml:"precache_atomic"`
}

func DefaultManifest(version string) Manifest {
	return Manifest{
		Version: version,
		Assets: []string{
			"/",
			"/manifest.json",
			"/icons/icon-72x72.png",
			"/icons/icon-192x192.png",
			"/icons/icon-512x512.png",
		},
	}
}

// LoadManifest reads a TOML manifest. An empty path yields the default manifest
// for fallbackVersion.
func LoadManifest(path, fallbackVersion string) (Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultManifest(fallbackVersion), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw, fallbackVersion)
}

func ParseManifest(raw []byte, fallbackVersion string) (Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		m.Version = fallbackVersion
	}
	seen := make(map[string]bool, len(m.Assets))
	assets := m.Assets[:0]
	for _, a := range m.Assets {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		if !strings.HasPrefix(a, "/") {
			return Manifest{}, fmt.Errorf("manifest asset %q must be an absolute path", a)
		}
		seen[a] = true
		assets = append(assets, a)
	}
	m.Assets = assets
	return m, nil
}
