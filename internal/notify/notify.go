package notify

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeDisconnected  NotificationType = "disconnected"
	NotificationTypeReconnected   NotificationType = "reconnected"
	NotificationTypeAgentStopped  NotificationType = "agent_stopped"
	NotificationTypeAgentError    NotificationType = "agent_error"
	NotificationTypeCommandFailed NotificationType = "command_failed"
	NotificationTypeInfo          NotificationType = "info"
)

// Notification represents a notification to be sent
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	AgentID   string // empty for bridge-wide notifications
	Timestamp time.Time
}

// Notifier is the interface for notification backends
type Notifier interface {
	// Notify sends a notification. It is called from the engine goroutine
	// and must not block.
	Notify(notification Notification) error
	// Close cleans up resources
	Close() error
}

// Manager fans notifications out to every backend
type Manager struct {
	notifiers []Notifier
	now       func() time.Time
}

// NewManager creates a new notification manager
func NewManager(notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		now:       time.Now,
	}
}

// Add registers another backend
func (m *Manager) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends a notification to all registered backends
func (m *Manager) Notify(notification Notification) error {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = m.now()
	}

	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(notification); err != nil {
			lastErr = err
			// Continue to other notifiers even if one fails
		}
	}
	return lastErr
}

// Close closes all notifiers
func (m *Manager) Close() error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
