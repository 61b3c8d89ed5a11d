package config

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"time"
)

// Parse reads configuration from an io.Reader. Unknown sections and keys are
// ignored so older binaries can read newer files.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		// key = value, or key: value
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		}

		if err := setField(cfg, section, key, value); err != nil {
			if section == "" {
				return nil, fmt.Errorf("error in root section: %w", err)
			}
			return nil, fmt.Errorf("error in section [%s]: %w", section, err)
		}
	}

	return cfg, scanner.Err()
}

func setField(cfg *Config, section, key, value string) error {
	switch section {
	case "":
		if key == "data_dir" {
			cfg.DataDir = value
		}
	case "store":
		switch key {
		case "kind":
			cfg.Store.Kind = strings.ToLower(value)
		case "dsn":
			cfg.Store.DSN = value
		}
	case "inpaint":
		switch key {
		case "url":
			cfg.Inpaint.URL = value
		case "backend_url":
			cfg.Inpaint.BackendURL = value
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration for key %s: %w", key, err)
			}
			cfg.Inpaint.Timeout = d
		case "image_quality":
			q, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid number for key %s: %w", key, err)
			}
			cfg.Inpaint.ImageQuality = q
		case "mask_format":
			cfg.Inpaint.MaskFormat = strings.ToLower(value)
		}
	case "editor":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for key %s: %w", key, err)
		}
		switch key {
		case "paint_width":
			cfg.Editor.PaintWidth = n
		case "refine_width":
			cfg.Editor.RefineWidth = n
		case "history":
			cfg.Editor.History = n
		}
	case "notify":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for key %s: %w", key, err)
		}
		switch key {
		case "save":
			cfg.Notify.Save = b
		case "inpaint":
			cfg.Notify.Inpaint = b
		case "copy":
			cfg.Notify.Copy = b
		}
	case "log":
		switch key {
		case "level":
			cfg.Log.Level = strings.ToLower(value)
		case "file":
			cfg.Log.File = value
		}
	case "colors":
		c, err := parseColor(value)
		if err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		cfg.Colors[key] = c
	}
	return nil
}

// parseColor parses #RRGGBB or #RRGGBBAA.
func parseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("color must start with #")
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex length")
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, err
	}
	if len(hex) == 6 {
		val = val<<8 | 0xFF
	}
	return color.RGBA{
		R: uint8(val >> 24),
		G: uint8(val >> 16),
		B: uint8(val >> 8),
		A: uint8(val),
	}, nil
}
