package transaction

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zenebe/receipt-analyzer/internal/parsing"
)

// IDGenerator generates unique IDs for documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles document analysis and transaction operations
type Service struct {
	db          DB
	parser      *parsing.Parser
	exporter    Exporter
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, parser *parsing.Parser, exporter Exporter) *Service {
	return &Service{
		db:          db,
		parser:      parser,
		exporter:    exporter,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, parser *parsing.Parser, exporter Exporter, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		parser:      parser,
		exporter:    exporter,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// AnalyzeDocument parses an uploaded receipt dump and persists the
// surviving transactions under a new document. A dump that yields no
// transactions is a legitimate result, not an error.
func (s *Service) AnalyzeDocument(filename, text string) (*Document, []*Record, error) {
	now := s.timeSource.Now()
	document := &Document{
		ID:        s.idGenerator.Generate(),
		Filename:  filename,
		Size:      len(text),
		CreatedAt: now,
	}

	parsed := s.parser.Parse(text)
	records := make([]*Record, 0, len(parsed))
	for _, t := range parsed {
		record := &Record{
			DocumentID:  document.ID,
			Transaction: t,
			CreatedAt:   now,
		}
		if err := s.db.SaveTransaction(record); err != nil {
			return nil, nil, fmt.Errorf("saving transaction: %w", err)
		}
		records = append(records, record)
	}

	document.TransactionCount = len(records)
	if err := s.db.SaveDocument(document); err != nil {
		return nil, nil, fmt.Errorf("saving document: %w", err)
	}

	slog.Info("Analyzed document",
		"filename", filename,
		"size", len(text),
		"transactions", len(records),
	)
	return document, records, nil
}

// ZeroReceipts reports the zero-value receipts in a dump without
// persisting anything.
func (s *Service) ZeroReceipts(text string) []parsing.ZeroReceipt {
	return parsing.FindZeroReceipts(text)
}

// GetTransaction retrieves a record by ID
func (s *Service) GetTransaction(id string) (*Record, error) {
	record, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return record, nil
}

// ListTransactions returns all records in insertion order
func (s *Service) ListTransactions() ([]*Record, error) {
	records, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return records, nil
}

// DeleteTransaction removes a record
func (s *Service) DeleteTransaction(id string) error {
	if _, err := s.db.GetTransaction(id); err != nil {
		return fmt.Errorf("getting transaction for deletion: %w", err)
	}
	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return nil
}

// ListDocuments returns all analyzed documents
func (s *Service) ListDocuments() ([]*Document, error) {
	documents, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return documents, nil
}

// ExportTransactions serializes all stored records into a spreadsheet
func (s *Service) ExportTransactions(sheetName string) ([]byte, error) {
	records, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions for export: %w", err)
	}
	data, err := s.exporter.Export(records, sheetName)
	if err != nil {
		return nil, fmt.Errorf("exporting transactions: %w", err)
	}
	return data, nil
}
