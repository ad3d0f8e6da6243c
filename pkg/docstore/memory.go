package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Fields
	seq  []string
}

// NewMemory returns an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Fields)}
}

func (m *Memory) Create(ctx context.Context, collection string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	path := collection + "/" + id
	m.docs[path] = Fields{}
	m.seq = append(m.seq, path)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fields == nil {
		fields = Fields{}
	}
	existing, ok := m.docs[path]
	if !ok {
		m.seq = append(m.seq, path)
		existing = Fields{}
	}

	if merge {
		m.docs[path] = Merge(cloneFields(existing), fields)
	} else {
		m.docs[path] = cloneFields(fields)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	return cloneFields(fields), nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, path)
	return nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := make(map[string]int, len(m.seq))
	for i, path := range m.seq {
		order[path] = i
	}

	prefix := collection + "/"
	var docs []Document
	for path, fields := range m.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		// Only direct children; nested subcollection documents are excluded.
		if strings.Contains(strings.TrimPrefix(path, prefix), "/") {
			continue
		}
		docs = append(docs, Document{ID: DocID(path), Path: path, Fields: cloneFields(fields)})
	}

	sort.Slice(docs, func(i, j int) bool {
		return order[docs[i].Path] < order[docs[j].Path]
	})
	return docs, nil
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
