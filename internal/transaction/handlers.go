package transaction

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// readUploadedDocument reads the text document from a multipart form.
// Decoding is the caller's job: the parser only ever sees plain text.
func readUploadedDocument(r *http.Request) (string, string, error) {
	maxFormSize := int64(10 << 20) // 10MB, far beyond any real dump
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		return "", "", fmt.Errorf("parsing form: %w", err)
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("no file provided: %w", err)
	}
	defer f.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && ext != ".txt" && ext != ".text" {
		return "", "", fmt.Errorf("unsupported file type %q, expected a plain-text dump", ext)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return header.Filename, string(data), nil
}

// handleUploadDocument analyzes an uploaded receipt dump
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	filename, text, err := readUploadedDocument(r)
	if err != nil {
		slog.Error("Error reading uploaded document", "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}

	document, records, err := s.service.AnalyzeDocument(filename, text)
	if err != nil {
		slog.Error("Error analyzing document", "filename", filename, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"document":     document,
		"transactions": records,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleZeroReceipts reports zero-value receipts in an uploaded dump
func (s *Server) handleZeroReceipts(w http.ResponseWriter, r *http.Request) {
	filename, text, err := readUploadedDocument(r)
	if err != nil {
		slog.Error("Error reading uploaded document", "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}

	zero := s.service.ZeroReceipts(text)
	slog.Info("Scanned for zero receipts", "filename", filename, "found", len(zero))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(zero); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListTransactions returns all stored transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	record, err := s.service.GetTransaction(id)
	if err != nil {
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteTransaction removes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteTransaction(id); err != nil {
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleListDocuments returns all analyzed documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.service.ListDocuments()
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(documents); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleExport downloads all stored transactions as an XLSX workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportTransactions(r.URL.Query().Get("sheet"))
	if err != nil {
		slog.Error("Error exporting transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.Write(data)
}
