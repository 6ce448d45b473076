package interceptlog

import (
	"context"
	"sync"
)

type MemInterceptionLog struct {
	mu       sync.Mutex
	capacity int
	nextID   int64
	total    int64
	// newest first
	entries []Entry
}

func NewMemInterceptionLog(capacity int) *MemInterceptionLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemInterceptionLog{capacity: capacity}
}

func (l *MemInterceptionLog) Append(ctx context.Context, entry Entry) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.total++
	entry.ID = l.nextID
	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return entry.ID, nil
}

func (l *MemInterceptionLog) List(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, l.entries[:n])
	return out, nil
}

func (l *MemInterceptionLog) Remove(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (l *MemInterceptionLog) Count(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total, nil
}
