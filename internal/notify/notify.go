package notify

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires when a category mask is written to a draft.
	EventSave Event = "save"
	// EventInpaint fires when a redacted preview comes back.
	EventInpaint Event = "inpaint"
	// EventCopy fires when a result is copied to the clipboard.
	EventCopy Event = "copy"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "Mask editor",
		Events: map[Event]EventPreference{
			EventSave:    {Template: "Saved %s mask"},
			EventInpaint: {Template: "Preview ready: %s"},
			EventCopy:    {Template: "Copied %s to clipboard"},
		},
	}
}

// LoadPreferences overrides the defaults from MASKEDIT_NOTIFY_* variables.
func LoadPreferences(getenv func(string) string) Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(getenv("MASKEDIT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			prefs.Events[event] = EventPreference{Template: v}
		}
	}
	apply("MASKEDIT_NOTIFY_SAVE_TEXT", EventSave)
	apply("MASKEDIT_NOTIFY_INPAINT_TEXT", EventInpaint)
	apply("MASKEDIT_NOTIFY_COPY_TEXT", EventCopy)
	return prefs
}

// SendFunc delivers a rendered notification.
type SendFunc func(title, body string, opts platform.Options) error

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender replaces platform.Notify.
func WithSender(send SendFunc) Option {
	return func(n *Notifier) { n.send = send }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

// Notifier sends OS-level notifications based on the configured preferences.
// A nil Notifier is valid and sends nothing.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    SendFunc
	log     *zap.Logger
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences, opts ...Option) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	n := &Notifier{
		prefs:   cloned,
		enabled: make(map[Event]bool),
		send:    platform.Notify,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Save reports a stored mask for category.
func (n *Notifier) Save(category string) {
	n.dispatch(EventSave, category, platform.Options{})
}

// Inpaint reports a finished preview. When img is given it is shown as the
// notification icon.
func (n *Notifier) Inpaint(path string, img image.Image) {
	if !n.enabledFor(EventInpaint) {
		return
	}
	detail := strings.TrimSpace(path)
	if abs, err := filepath.Abs(path); err == nil && detail != "" {
		detail = abs
	}
	opts := platform.Options{}
	if img != nil {
		icon, cleanup, err := createPreview(img)
		if err != nil {
			n.named().Warn("notification preview", zap.Error(err))
		} else {
			defer cleanup()
			opts.IconPath = icon
		}
	}
	n.dispatch(EventInpaint, detail, opts)
}

// named resolves late so a Notifier built before logging is configured
// still reports through the process logger.
func (n *Notifier) named() *zap.Logger {
	return logger.Named(n.log, "notify")
}

// Copy sends a clipboard notification.
func (n *Notifier) Copy(detail string) {
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

func (n *Notifier) enabledFor(event Event) bool {
	return n != nil && n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.prefs.Events[event].Template)
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if err := n.send(n.prefs.Title, body, opts); err != nil {
		n.named().Warn("notification failed", zap.String("event", string(event)), zap.Error(err))
	}
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "maskedit-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}
