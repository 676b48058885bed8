// Package notify defines the local-notification side-effect port.
package notify

import "go.uber.org/zap"

// Notifier raises a user-visible notification for an inbound message
// received while the app is backgrounded. The actual presentation is
// an external collaborator.
type Notifier interface {
	Notify(title, body string)
}

// LogNotifier is a Notifier that only logs, used by the daemon when no
// platform notifier is plugged in.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(title, body string) {
	n.Logger.Info("notification", zap.String("title", title), zap.String("body", body))
}
