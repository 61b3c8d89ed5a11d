package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/maskedit/internal/config"
)

type configCmd struct {
	*root
	fs     *flag.FlagSet
	output string
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Template() string {
	return "config.txt"
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	c := &configCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", "", "file written by config save (default: the loaded file or the user config path)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *configCmd) Run() error {
	switch c.fs.Arg(0) {
	case "print":
		fmt.Fprint(c.stdout(), c.config.String())
		return nil
	case "path":
		path := c.loader().GetConfigPath()
		if path == "" {
			path = "(none, using defaults)"
		}
		fmt.Fprintln(c.stdout(), path)
		return nil
	case "save":
		return c.runSave()
	default:
		return &UsageError{of: c}
	}
}

func (c *configCmd) loader() *config.Loader {
	override := configPathOverride
	if v := strings.TrimSpace(os.Getenv("MASKEDIT_CONFIG")); v != "" {
		override = v
	}
	return config.NewLoader(version, override)
}

func (c *configCmd) runSave() error {
	path := c.output
	if path == "" {
		path = c.loader().GetConfigPath()
	}
	if path == "" {
		path = config.DefaultPath()
	}
	if err := c.config.Save(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}
