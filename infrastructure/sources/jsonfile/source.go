// Package jsonfile serves recipe records from a local file.
package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"recipegraph/application/ingestion"
)

// Source holds every record of a file in memory and hands them out in
// pages. Accepted layouts are a JSON array, an object with a "recipes"
// array, or one JSON object per line.
type Source struct {
	records  []ingestion.RecipeRecord
	pageSize int
	offset   int
}

var _ ingestion.RecipeSource = (*Source)(nil)

// Open reads and decodes path.
func Open(path string, pageSize int) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return NewSource(records, pageSize), nil
}

// NewSource pages over records already in memory.
func NewSource(records []ingestion.RecipeRecord, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Source{records: records, pageSize: pageSize}
}

// Len is the number of records in the file.
func (s *Source) Len() int { return len(s.records) }

// NextPage returns the next page; the last one comes with io.EOF.
func (s *Source) NextPage(ctx context.Context) ([]ingestion.RecipeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.offset >= len(s.records) {
		return nil, io.EOF
	}
	end := min(s.offset+s.pageSize, len(s.records))
	page := s.records[s.offset:end]
	s.offset = end
	if end == len(s.records) {
		return page, io.EOF
	}
	return page, nil
}

// Decode parses any of the accepted layouts.
func Decode(data []byte) ([]ingestion.RecipeRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var records []ingestion.RecipeRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	case '{':
		var wrapped struct {
			Recipes []ingestion.RecipeRecord `json:"recipes"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Recipes != nil {
			return wrapped.Recipes, nil
		}
		return decodeLines(trimmed)
	default:
		return nil, fmt.Errorf("unexpected leading character %q", trimmed[0])
	}
}

func decodeLines(data []byte) ([]ingestion.RecipeRecord, error) {
	var records []ingestion.RecipeRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec ingestion.RecipeRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
