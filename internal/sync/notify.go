package sync

import "log"

// Level classifies a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message surfaced to the operator, typically
// after a persistence call fails. Notifications never block editing.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications from the editor and sync layer.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the process log. It is the default
// when no UI is attached.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(n Notification) {
	log.Printf("sync: [%s] %s", n.Level, n.Message)
}
