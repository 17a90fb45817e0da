package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// JSONLSink writes enriched products as newline-delimited JSON, one
// record per line, flushed as batches arrive.
type JSONLSink struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLSink creates a JSONL file sink at outputPath.
func NewJSONLSink(outputPath string, logger *slog.Logger) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &JSONLSink{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_sink"),
	}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Store(products []catalog.EnrichedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range products {
		if err := s.enc.Encode(NewRecord(&products[i])); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	s.count += len(products)
	s.logger.Debug("records written", "count", len(products), "total", s.count)
	return nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("jsonl sink closing", "path", s.path, "total_records", s.count)
	return s.file.Close()
}
