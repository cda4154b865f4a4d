package parser

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kursadbilgin/textqueue/internal/phone"
	"go.uber.org/zap"
)

// Parser reads a weekly texts export and reconstructs its message records.
type Parser struct {
	fromNumber string
	normalizer *phone.Normalizer
	logger     *zap.Logger
}

func New(fromNumber string, normalizer *phone.Normalizer, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		fromNumber: fromNumber,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Parse streams comma-separated rows from r. Malformed groups never abort the
// run; only a read or CSV syntax error does.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = ','
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	acc := NewAccumulator(p.fromNumber, p.normalizer, p.logger)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		acc.Feed(row)
	}

	return acc.Finish(), nil
}

// ParseFile parses the export at path and records the SHA-256 of its contents.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	hash := sha256.New()
	result, err := p.Parse(io.TeeReader(f, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result.Checksum = hex.EncodeToString(hash.Sum(nil))
	return result, nil
}
