package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentRow is the relational shape of one document. Fields are stored as
// a JSON blob; the collection column exists only to serve List queries.
type documentRow struct {
	Path       string `gorm:"primaryKey;size:512"`
	Collection string `gorm:"index;size:512"`
	DocID      string `gorm:"size:64"`
	Fields     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormStore persists documents in the shared relational database.
type GormStore struct {
	db *gorm.DB
	tx txRunner
}

// NewGormStore builds a document store bound to the provided DB handle.
func NewGormStore(db *gorm.DB, tx txRunner) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &GormStore{db: db, tx: tx}, nil
}

// Create allocates a server-generated id under collection and writes an
// empty document for it.
func (s *GormStore) Create(ctx context.Context, collection string) (string, error) {
	id := uuid.NewString()
	row := documentRow{
		Path:       collection + "/" + id,
		Collection: collection,
		DocID:      id,
		Fields:     "{}",
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return id, nil
}

// Set writes fields at path. With merge the write shallow-merges into the
// existing fields inside one transaction; without it the document is replaced.
func (s *GormStore) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	if fields == nil {
		fields = Fields{}
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var row documentRow
		err := tx.WithContext(ctx).Where("path = ?", path).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = documentRow{
				Path:       path,
				Collection: collectionOf(path),
				DocID:      DocID(path),
			}
		case err != nil:
			return fmt.Errorf("load document: %w", err)
		}

		next := fields
		if merge && row.Fields != "" {
			existing := Fields{}
			if err := json.Unmarshal([]byte(row.Fields), &existing); err != nil {
				return fmt.Errorf("decode document fields: %w", err)
			}
			next = Merge(existing, fields)
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode document fields: %w", err)
		}
		row.Fields = string(encoded)

		return tx.WithContext(ctx).Save(&row).Error
	})
}

// Get returns the fields at path, or (nil, nil) when the document is absent.
func (s *GormStore) Get(ctx context.Context, path string) (Fields, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return decodeFields(row.Fields)
}

// Delete removes the document at path; deleting an absent document succeeds.
func (s *GormStore) Delete(ctx context.Context, path string) error {
	if err := s.db.WithContext(ctx).Where("path = ?", path).Delete(&documentRow{}).Error; err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List returns every document directly under collection, oldest first.
func (s *GormStore) List(ctx context.Context, collection string) ([]Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: row.DocID, Path: row.Path, Fields: fields})
	}
	return docs, nil
}

func decodeFields(raw string) (Fields, error) {
	if raw == "" {
		return Fields{}, nil
	}
	fields := Fields{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}

func collectionOf(path string) string {
	idx := len(path) - len(DocID(path)) - 1
	if idx < 0 {
		return ""
	}
	return path[:idx]
}
