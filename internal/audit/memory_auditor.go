package audit

import (
	"context"
	"sync"

	"github.com/darmiel/authnd/internal/core"
)

var (
	_ core.Auditor     = (*InMemoryAuditor)(nil)
	_ core.AuditReader = (*InMemoryAuditor)(nil)
)

// InMemoryAuditor is an auditor that keeps audit events in memory.
type InMemoryAuditor struct {
	mu     sync.Mutex
	events []core.AuditEvent
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		events: make([]core.AuditEvent, 0),
	}
}

func (i *InMemoryAuditor) Log(_ context.Context, event core.AuditEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.events = append(i.events, event)
	return nil
}

// GetRecent returns the last limit events, oldest first.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEvent, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	limit = min(max(limit, 0), len(i.events))
	start := len(i.events) - limit
	events := make([]core.AuditEvent, limit)
	copy(events, i.events[start:])

	return events, nil
}

// Find returns the last limit events matching filter, oldest first.
func (i *InMemoryAuditor) Find(filter func(event core.AuditEvent) bool, limit int) ([]core.AuditEvent, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.AuditEvent
	for _, event := range i.events {
		if filter(event) {
			matches = append(matches, event)
		}
	}

	if limit >= 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
