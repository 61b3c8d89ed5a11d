package platform

import "time"

// DefaultAppName is reported to the notification daemon when Options leaves
// AppName empty.
const DefaultAppName = "maskedit"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// AppName identifies the sender. Empty means DefaultAppName.
	AppName string
	// IconPath points to an image shown next to the message, when supported.
	IconPath string
	// Timeout is how long the message stays up. Zero lets the daemon decide.
	Timeout time.Duration
}

func (o Options) appName() string {
	if o.AppName == "" {
		return DefaultAppName
	}
	return o.AppName
}

// expiry converts Timeout to the freedesktop convention: -1 for default.
func (o Options) expiry() int32 {
	if o.Timeout <= 0 {
		return -1
	}
	return int32(o.Timeout / time.Millisecond)
}
