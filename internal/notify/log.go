package notify

import "log"

// LogNotifier writes notifications to a logger
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) error {
	if n.AgentID != "" {
		l.logger.Printf("Notify: [%s] %s (%s): %s\n", n.Type, n.Title, n.AgentID, n.Message)
		return nil
	}
	l.logger.Printf("Notify: [%s] %s: %s\n", n.Type, n.Title, n.Message)
	return nil
}

func (l *LogNotifier) Close() error {
	return nil
}
