package store

import (
	"context"
	"sync"

	"github.com/akolanti/irbench/internal/config"
)

type InMemoryEventStore struct {
	eventLock *sync.RWMutex
	eventMap  map[string][]string
}

func InitInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		eventLock: new(sync.RWMutex),
		eventMap:  make(map[string][]string),
	}
}

func (store *InMemoryEventStore) AppendEvent(ctx context.Context, jobID string, event string) error {
	store.eventLock.Lock()
	defer store.eventLock.Unlock()
	events := append(store.eventMap[jobID], event)
	if len(events) > config.EventStoreMaxLen {
		events = events[len(events)-config.EventStoreMaxLen:]
	}
	store.eventMap[jobID] = events
	return nil
}

func (store *InMemoryEventStore) RecentEvents(ctx context.Context, jobID string) ([]string, error) {
	store.eventLock.RLock()
	defer store.eventLock.RUnlock()
	out := make([]string, len(store.eventMap[jobID]))
	copy(out, store.eventMap[jobID])
	return out, nil
}
