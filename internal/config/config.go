package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
)

// Store selects the draft backend.
type Store struct {
	Kind string
	DSN  string
}

// Inpaint points at the redaction services.
type Inpaint struct {
	URL          string
	BackendURL   string
	Timeout      time.Duration
	ImageQuality float64
	MaskFormat   string
}

// Editor holds brush and history defaults.
type Editor struct {
	PaintWidth  int
	RefineWidth int
	History     int
}

// Notify holds notification settings.
type Notify struct {
	Save    bool
	Inpaint bool
	Copy    bool
}

// Log configures the process logger.
type Log struct {
	Level string
	File  string
}

// Config holds the application configuration.
type Config struct {
	DataDir string
	Store   Store
	Inpaint Inpaint
	Editor  Editor
	Notify  Notify
	Log     Log
	// Colors overrides the preview tint per category.
	Colors map[string]color.RGBA
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Store: Store{Kind: drafts.BackendFile},
		Inpaint: Inpaint{
			URL:          redact.DefaultBaseURL,
			BackendURL:   redact.DefaultBackendURL,
			Timeout:      60 * time.Second,
			ImageQuality: payload.DefaultImageQuality,
			MaskFormat:   "png",
		},
		Editor: Editor{
			PaintWidth:  mask.PaintBrush.Default,
			RefineWidth: mask.RefineBrush.Default,
			History:     mask.DefaultHistoryCapacity,
		},
		Log:    Log{Level: "info"},
		Colors: make(map[string]color.RGBA),
	}
}

// DataDirOrDefault returns DataDir, or ~/.local/share/maskedit when unset.
func (c *Config) DataDirOrDefault() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "maskedit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".maskedit"
	}
	return filepath.Join(home, ".local", "share", "maskedit")
}

// ApplyEnv overrides settings from MASKEDIT_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.DataDir, "MASKEDIT_DATA_DIR")
	set(&c.Store.Kind, "MASKEDIT_STORE")
	set(&c.Store.DSN, "MASKEDIT_STORE_DSN")
	set(&c.Inpaint.URL, "MASKEDIT_INPAINT_URL")
	set(&c.Inpaint.BackendURL, "MASKEDIT_BACKEND_URL")
	set(&c.Log.Level, "MASKEDIT_LOG_LEVEL")
	set(&c.Log.File, "MASKEDIT_LOG_FILE")
}

// Validate checks values that the parser accepts but the app cannot use.
func (c *Config) Validate() error {
	q := c.Inpaint.ImageQuality
	if q <= 0 || q > 1 {
		return fmt.Errorf("inpaint.image_quality must be in (0,1], got %v", q)
	}
	if _, err := payload.ParseFormat(c.Inpaint.MaskFormat); err != nil {
		return fmt.Errorf("inpaint.mask_format: %w", err)
	}
	kind := strings.ToLower(c.Store.Kind)
	known := false
	for _, b := range drafts.Backends() {
		known = known || b == kind
	}
	if !known {
		return fmt.Errorf("store.kind %q is not one of %s", c.Store.Kind, strings.Join(drafts.Backends(), ", "))
	}
	if c.Editor.History < 0 {
		return fmt.Errorf("editor.history must not be negative")
	}
	return nil
}

// MaskFormat returns the parsed mask encoding, PNG when unset or invalid.
func (c *Config) MaskFormat() payload.Format {
	f, err := payload.ParseFormat(c.Inpaint.MaskFormat)
	if err != nil {
		return payload.PNG
	}
	return f
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.DataDir != "" {
		fmt.Fprintf(&sb, "data_dir = %s\n", c.DataDir)
		sb.WriteString("\n")
	}

	sb.WriteString("[store]\n")
	fmt.Fprintf(&sb, "kind = %s\n", c.Store.Kind)
	if c.Store.DSN != "" {
		fmt.Fprintf(&sb, "dsn = %s\n", c.Store.DSN)
	}
	sb.WriteString("\n")

	sb.WriteString("[inpaint]\n")
	fmt.Fprintf(&sb, "url = %s\n", c.Inpaint.URL)
	fmt.Fprintf(&sb, "backend_url = %s\n", c.Inpaint.BackendURL)
	fmt.Fprintf(&sb, "timeout = %s\n", c.Inpaint.Timeout)
	fmt.Fprintf(&sb, "image_quality = %v\n", c.Inpaint.ImageQuality)
	fmt.Fprintf(&sb, "mask_format = %s\n", c.Inpaint.MaskFormat)
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "paint_width = %d\n", c.Editor.PaintWidth)
	fmt.Fprintf(&sb, "refine_width = %d\n", c.Editor.RefineWidth)
	fmt.Fprintf(&sb, "history = %d\n", c.Editor.History)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "inpaint = %v\n", c.Notify.Inpaint)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	sb.WriteString("[log]\n")
	fmt.Fprintf(&sb, "level = %s\n", c.Log.Level)
	if c.Log.File != "" {
		fmt.Fprintf(&sb, "file = %s\n", c.Log.File)
	}

	if len(c.Colors) > 0 {
		sb.WriteString("\n[colors]\n")
		names := make([]string, 0, len(c.Colors))
		for name := range c.Colors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "%s = %s\n", name, toHex(c.Colors[name]))
		}
	}
	return sb.String()
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(c.String()), 0o644)
}

func toHex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
