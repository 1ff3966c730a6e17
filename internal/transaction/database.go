package transaction

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	transactionBucketName = "transactions"
	documentBucketName    = "documents"
)

// DB defines the interface for database operations
type DB interface {
	// SaveTransaction saves a record, assigning its ID when empty
	SaveTransaction(record *Record) error

	// GetTransaction retrieves a record by ID
	GetTransaction(id string) (*Record, error)

	// ListTransactions returns all records in insertion order
	ListTransactions() ([]*Record, error)

	// DeleteTransaction removes a record from the database
	DeleteTransaction(id string) error

	// SaveDocument saves an analyzed document
	SaveDocument(document *Document) error

	// ListDocuments returns all analyzed documents
	ListDocuments() ([]*Document, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(transactionBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(documentBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveTransaction saves a record to the database. A record without an
// ID gets the next bucket sequence, zero-padded so byte-ordered keys
// match insertion order.
func (b *BoltDB) SaveTransaction(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(transactionBucketName))
		if record.ID == "" {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("generating sequence: %w", err)
			}
			record.ID = fmt.Sprintf("%020d", seq)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetTransaction retrieves a record by ID
func (b *BoltDB) GetTransaction(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(transactionBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("transaction not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListTransactions returns all records in insertion order
func (b *BoltDB) ListTransactions() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(transactionBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteTransaction removes a record from the database
func (b *BoltDB) DeleteTransaction(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(transactionBucketName))
		return bucket.Delete([]byte(id))
	})
}

// SaveDocument saves a document to the database
func (b *BoltDB) SaveDocument(document *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		data, err := json.Marshal(document)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put([]byte(document.ID), data)
	})
}

// ListDocuments returns all documents
func (b *BoltDB) ListDocuments() ([]*Document, error) {
	documents := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var document Document
			if err := json.Unmarshal(v, &document); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			documents = append(documents, &document)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
