package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/config"
	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/notify"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs       *flag.FlagSet
	program  string
	config   *config.Config
	notifier *notify.Notifier
	store    drafts.Store
	out      io.Writer

	saveAlerts    bool
	inpaintAlerts bool
	copyAlerts    bool
}

func (r *root) Program() string {
	return r.program
}

// stdout is where command output goes; colour codes are stripped when it is
// not a terminal.
func (r *root) stdout() io.Writer {
	if r.out == nil {
		return color.Output
	}
	return r.out
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	// a missing .env is normal
	_ = godotenv.Load()

	override := configPathOverride
	if v := strings.TrimSpace(os.Getenv("MASKEDIT_CONFIG")); v != "" {
		override = v
	}
	cfg, err := config.NewLoader(version, override).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}
	// Precedence: CLI > Env > Config > Default. Env is folded in here and
	// the result becomes the flag defaults.
	cfg.ApplyEnv(os.Getenv)

	r := &root{
		fs:       flag.NewFlagSet("maskedit", flag.ExitOnError),
		program:  "maskedit",
		config:   cfg,
		notifier: notify.New(notify.LoadPreferences(os.Getenv)),
	}
	r.fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for drafts, uploads and results")
	r.fs.StringVar(&cfg.Store.Kind, "store", cfg.Store.Kind, "draft store: "+strings.Join(drafts.Backends(), ", "))
	r.fs.StringVar(&cfg.Store.DSN, "dsn", cfg.Store.DSN, "store location (directory, database file, redis URL or bucket/prefix)")
	r.fs.StringVar(&cfg.Inpaint.URL, "inpaint-url", cfg.Inpaint.URL, "base URL of the inpainting service")
	r.fs.StringVar(&cfg.Inpaint.BackendURL, "backend-url", cfg.Inpaint.BackendURL, "base URL of the blur/clean service")
	r.fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	r.fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also write JSON logs to this file")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a mask")
	r.fs.BoolVar(&r.inpaintAlerts, "notify-inpaint", cfg.Notify.Inpaint, "show a desktop notification when a preview is ready")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logger.Initialize(r.config.Log.Level, r.config.Log.File); err != nil {
		return err
	}
	defer logger.Close()

	r.notifier.Enable(notify.EventSave, r.saveAlerts)
	r.notifier.Enable(notify.EventInpaint, r.inpaintAlerts)
	r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	defer r.closeStore()

	return r.dispatch(r.fs.Arg(0), r.fs.Args()[1:])
}

func (r *root) dispatch(cmdName string, subArgs []string) error {
	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "drafts":
		cmd, err = parseDraftsCmd(subArgs, r)
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "inpaint":
		cmd, err = parseInpaintCmd(subArgs, r)
	case "redact":
		cmd, err = parseRedactCmd(subArgs, r)
	case "preview":
		cmd, err = parsePreviewCmd(subArgs, r)
	case "masks":
		cmd, err = parseMasksCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

// openStore opens the configured draft store once per process.
func (r *root) openStore(ctx context.Context) (drafts.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	s, err := drafts.Open(ctx, r.config.Store.Kind, r.config.Store.DSN, r.config.DataDirOrDefault(), logger.Log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", r.config.Store.Kind, err)
	}
	r.store = s
	return s, nil
}

func (r *root) closeStore() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		logger.Log.Warn("closing draft store", zap.Error(err))
	}
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (r *root) notifySave(category drafts.Category) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Save(string(category))
}

func (r *root) notifyInpaint(path string, img image.Image) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Inpaint(path, img)
}

func (r *root) notifyCopy(detail string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Copy(detail)
}
