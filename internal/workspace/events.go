package workspace

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/logging"
)

// EventKind names the part of the workspace that changed
type EventKind string

const (
	EventProject     EventKind = "project"
	EventPreviews    EventKind = "previews"
	EventEvaluations EventKind = "evaluations"
	EventFolders     EventKind = "folders"
	EventSelection   EventKind = "selection"
	EventFocus       EventKind = "focus"
	EventFullImage   EventKind = "full_image"
	EventBusy        EventKind = "busy"
	EventSettings    EventKind = "settings"
	EventNotice      EventKind = "notice"
)

// Event tells subscribers that a part of the workspace changed. Readers
// take a Snapshot to see the new state.
type Event struct {
	Kind   EventKind
	Notice *Notice
}

// Level grades a notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user facing message about an operation
type Notice struct {
	Level   Level
	Message string
	Detail  string
}

// Notifier shows notices to the user. Notify is called with the workspace
// lock held and must not call back into the workspace.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// logNotifier is used when no notifier is configured.
type logNotifier struct{}

func (logNotifier) Notify(n Notice) {
	fields := []zap.Field{logging.String("level", string(n.Level))}
	if n.Detail != "" {
		fields = append(fields, logging.String("detail", n.Detail))
	}
	if n.Level == LevelError {
		logging.Warn(n.Message, fields...)
		return
	}
	logging.Info(n.Message, fields...)
}

// broadcaster fans events out to subscribers. Slow subscribers lose events
// instead of blocking the workspace.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subscribers: make(map[chan Event]struct{})}
}

func (b *broadcaster) subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if sub == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
