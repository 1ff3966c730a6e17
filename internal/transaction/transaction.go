package transaction

import (
	"time"

	"github.com/zenebe/receipt-analyzer/internal/parsing"
)

// Record is one extracted line-item sale as persisted. The ID is the
// store's zero-padded sequence, so listing by key yields insertion
// order.
type Record struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	parsing.Transaction
	CreatedAt time.Time `json:"created_at"`
}

// Document is one uploaded receipt dump and the outcome of analyzing
// it.
type Document struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	Size             int       `json:"size"`
	TransactionCount int       `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
}
