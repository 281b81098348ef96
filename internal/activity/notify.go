package activity

import (
	"sync"

	"device-activity-service/internal/model"
)

// NotificationKind says what changed in the log.
type NotificationKind string

const (
	KindAppended NotificationKind = "appended"
	KindCleared  NotificationKind = "cleared"
	KindImported NotificationKind = "imported"
)

// Notification is delivered to subscribers after a successful mutation.
// EnvironmentID is empty when the change spans every environment.
type Notification struct {
	Kind          NotificationKind
	EnvironmentID string
	Event         *model.ActivityEvent
}

// Subscribe registers fn for change notifications. fn runs synchronously
// on the mutating goroutine after the log lock is released. The returned
// func removes the subscription.
func (l *Log) Subscribe(fn func(Notification)) (unsubscribe func()) {
	return l.subs.add(fn)
}

type subscribers struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]func(Notification)
}

func (s *subscribers) add(fn func(Notification)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(Notification))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) publish(n Notification) {
	s.mu.RLock()
	fns := make([]func(Notification), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(n)
	}
}
