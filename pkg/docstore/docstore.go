// Package docstore provides the document-store abstraction the activation
// wizard persists through. Documents are addressed by slash-separated paths
// under collections, writes can shallow-merge into existing fields, and
// deletes are idempotent.
package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Fields holds one document's payload. Values are JSON-compatible scalars,
// so numeric reads must tolerate float64 from decoding.
type Fields map[string]any

// Document pairs a path with its decoded fields.
type Document struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Fields Fields `json:"fields"`
}

// Store is the persistence contract consumed by the step persister and the
// lifecycle coordinator. Get returns (nil, nil) for an absent document;
// errors are reserved for transport or permission failures. Delete succeeds
// when the document is already absent.
type Store interface {
	Create(ctx context.Context, collection string) (string, error)
	Set(ctx context.Context, path string, fields Fields, merge bool) error
	Get(ctx context.Context, path string) (Fields, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string) ([]Document, error)
}

// Document path layout, mirrored across every store implementation.
const (
	usersCollection  = "users"
	ordersCollection = "orders"
	contactDocName   = "contactInfo/primary"
	shippingDocName  = "shippingAddress/primary"
)

func UserDoc(userID string) string {
	return fmt.Sprintf("%s/%s", usersCollection, userID)
}

func ContactDoc(userID string) string {
	return fmt.Sprintf("%s/%s/%s", usersCollection, userID, contactDocName)
}

func ShippingDoc(userID string) string {
	return fmt.Sprintf("%s/%s/%s", usersCollection, userID, shippingDocName)
}

func OrdersCollection(userID string) string {
	return fmt.Sprintf("%s/%s/%s", usersCollection, userID, ordersCollection)
}

func OrderDoc(userID, orderID string) string {
	return fmt.Sprintf("%s/%s", OrdersCollection(userID), orderID)
}

// DocID returns the final path segment, which is the document's id.
func DocID(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// Merge shallow-merges src into dst, replacing scalar values key by key.
func Merge(dst, src Fields) Fields {
	if dst == nil {
		dst = Fields{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// String reads a string field, returning "" when absent or mistyped.
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Bool reads a boolean field, returning false when absent or mistyped.
func (f Fields) Bool(key string) bool {
	if v, ok := f[key].(bool); ok {
		return v
	}
	return false
}

// Int reads an integer field, tolerating the float64 JSON decoding produces.
func (f Fields) Int(key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Time reads an RFC3339 timestamp field, returning the zero time when absent
// or unparseable.
func (f Fields) Time(key string) time.Time {
	raw := f.String(key)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
