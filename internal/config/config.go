// Package config loads and freezes the process configuration consumed
// by every other component. Loading is a leaf concern; once Load
// returns, the Config value never changes for the life of the process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Rule is one entry of stored_metadata_rules: a matcher plus the
// actions it drives, applied automatically on every scan.
type Rule struct {
	Matcher string   `koanf:"matcher"`
	Actions []string `koanf:"actions"`
	Ignore  []string `koanf:"ignore"`
}

// ArtistAlias maps a set of alternate spellings onto one primary artist name.
type ArtistAlias struct {
	Artist  string   `koanf:"artist"`
	Aliases []string `koanf:"aliases"`
}

// Config holds every tunable named in the configuration table.
type Config struct {
	MusicSourceDir            string        `koanf:"music_source_dir"`
	CacheDir                  string        `koanf:"cache_dir"`
	MaxProc                   int           `koanf:"max_proc"`
	MaxFilenameBytes          int           `koanf:"max_filename_bytes"`
	CoverArtStems             []string      `koanf:"cover_art_stems"`
	ValidArtExts              []string      `koanf:"valid_art_exts"`
	WriteParentGenres         bool          `koanf:"write_parent_genres"`
	RenameSourceFiles         bool          `koanf:"rename_source_files"`
	IgnoreReleaseDirectories  []string      `koanf:"ignore_release_directories"`
	ArtistAliases             []ArtistAlias `koanf:"artist_aliases"`
	StoredMetadataRules       []Rule        `koanf:"stored_metadata_rules"`
}

// reservedDirs are collection directories skipped during library scans.
var reservedDirs = map[string]bool{
	"!collages":  true,
	"!playlists": true,
}

// IsReservedDirectory reports whether name is a collage/playlist directory.
func IsReservedDirectory(name string) bool {
	return reservedDirs[name]
}

// Load reads ~/.config/rose/config.toml then ./config.toml (last wins),
// applies defaults, and expands leading `~` in path-valued fields.
// Following the corpus's config loader, this is the only place koanf is
// touched; everything downstream sees a plain Config value.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.MusicSourceDir == "" {
		return nil, fmt.Errorf("music_source_dir is required")
	}
	cfg.MusicSourceDir = expandPath(cfg.MusicSourceDir)
	cfg.CacheDir = expandPath(cfg.CacheDir)

	if cfg.MaxProc <= 0 {
		cfg.MaxProc = defaultMaxProc()
	}
	if cfg.MaxFilenameBytes <= 0 {
		cfg.MaxFilenameBytes = 180
	}
	if len(cfg.CoverArtStems) == 0 {
		cfg.CoverArtStems = []string{"folder", "cover", "art", "front"}
	}
	if len(cfg.ValidArtExts) == 0 {
		cfg.ValidArtExts = []string{"jpg", "jpeg", "png"}
	}

	return cfg, nil
}

func defaultConfig() *Config {
	cacheDir, err := xdg.CacheFile(filepath.Join("rose", "cache.sqlite3"))
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), "rose")
	} else {
		cacheDir = filepath.Dir(cacheDir)
	}
	return &Config{
		CacheDir:         cacheDir,
		MaxProc:          defaultMaxProc(),
		MaxFilenameBytes: 180,
		CoverArtStems:    []string{"folder", "cover", "art", "front"},
		ValidArtExts:     []string{"jpg", "jpeg", "png"},
	}
}

func defaultMaxProc() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

func configPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rose", "config.toml"))
	}
	paths = append(paths, "config.toml")
	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
