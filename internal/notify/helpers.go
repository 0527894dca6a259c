package notify

import (
	"fmt"
)

// NotifyConnectivity reports a connectivity edge of the event bridge
func (m *Manager) NotifyConnectivity(connected bool, source string) error {
	if connected {
		return m.Notify(Notification{
			Type:    NotificationTypeReconnected,
			Title:   "Connected",
			Message: fmt.Sprintf("Receiving events from %s", source),
		})
	}
	return m.Notify(Notification{
		Type:    NotificationTypeDisconnected,
		Title:   "Disconnected",
		Message: fmt.Sprintf("Lost contact with %s; still retrying", source),
	})
}

// NotifyAgentStopped sends a notification when an agent finishes
func (m *Manager) NotifyAgentStopped(agentName, agentID, summary string) error {
	msg := fmt.Sprintf("%s stopped", agentName)
	if summary != "" {
		msg = fmt.Sprintf("%s stopped: %s", agentName, summary)
	}
	return m.Notify(Notification{
		Type:    NotificationTypeAgentStopped,
		Title:   "Agent Stopped",
		Message: msg,
		AgentID: agentID,
	})
}

// NotifyAgentError sends a notification when an agent reports an error
func (m *Manager) NotifyAgentError(agentName, agentID, errorMsg string) error {
	return m.Notify(Notification{
		Type:    NotificationTypeAgentError,
		Title:   "Agent Error",
		Message: fmt.Sprintf("%s failed: %s", agentName, errorMsg),
		AgentID: agentID,
	})
}

// NotifyCommandFailed reports a command the transport did not accept
func (m *Manager) NotifyCommandFailed(target, command string, err error) error {
	return m.Notify(Notification{
		Type:    NotificationTypeCommandFailed,
		Title:   "Command Failed",
		Message: fmt.Sprintf("%s for %s: %v", command, target, err),
		AgentID: target,
	})
}

// NotifyInfo sends a general informational notification
func (m *Manager) NotifyInfo(title, message string) error {
	return m.Notify(Notification{
		Type:    NotificationTypeInfo,
		Title:   title,
		Message: message,
	})
}
