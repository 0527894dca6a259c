package tui

import (
	"time"

	"github.com/gabe/mobwatch/internal/notify"
)

// DefaultToastTTL is how long a toast stays on screen
const DefaultToastTTL = 4 * time.Second

type Toast struct {
	Message string
	Type    notify.NotificationType
	Expires time.Time
}

// Error reports whether the toast should be drawn as a failure
func (t Toast) Error() bool {
	switch t.Type {
	case notify.NotificationTypeDisconnected, notify.NotificationTypeAgentError, notify.NotificationTypeCommandFailed:
		return true
	}
	return false
}

// ToastQueue holds notifications waiting to be shown. It implements
// notify.Notifier and is only touched from the program goroutine.
type ToastQueue struct {
	items []Toast
	ttl   time.Duration
	now   func() time.Time
}

func NewToastQueue() *ToastQueue {
	return &ToastQueue{ttl: DefaultToastTTL, now: time.Now}
}

func (queue *ToastQueue) Push(toast Toast) {
	queue.items = append(queue.items, toast)
}

func (queue *ToastQueue) Peek() (Toast, bool) {
	if len(queue.items) == 0 {
		return Toast{}, false
	}
	return queue.items[0], true
}

func (queue *ToastQueue) Pop() (Toast, bool) {
	if len(queue.items) == 0 {
		return Toast{}, false
	}
	item := queue.items[0]
	queue.items = queue.items[1:]
	return item, true
}

func (queue *ToastQueue) Len() int {
	return len(queue.items)
}

// Prune drops the head toast once it has expired, then starts the clock on
// the next one so queued toasts are each shown for the full TTL
func (queue *ToastQueue) Prune(now time.Time) {
	head, ok := queue.Peek()
	if !ok || now.Before(head.Expires) {
		return
	}
	queue.Pop()
	if len(queue.items) > 0 {
		queue.items[0].Expires = now.Add(queue.ttl)
	}
}

// Notify implements notify.Notifier
func (queue *ToastQueue) Notify(n notify.Notification) error {
	msg := n.Title
	if n.Message != "" {
		msg = n.Title + ": " + n.Message
	}
	expires := queue.now().Add(queue.ttl)
	if len(queue.items) > 0 {
		// Starts counting when it reaches the head.
		expires = time.Time{}
	}
	queue.Push(Toast{Message: msg, Type: n.Type, Expires: expires})
	return nil
}

// Close implements notify.Notifier
func (queue *ToastQueue) Close() error {
	queue.items = nil
	return nil
}
