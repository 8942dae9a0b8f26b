// Package loader reads log corpora from disk into documents.
package loader

import (
	"bufio"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/store"
)

var supportedExtensions = map[string]bool{
	".txt":   true,
	".md":    true,
	".json":  true,
	".jsonl": true,
	".csv":   true,
}

// LoadDirectory reads every supported file directly under dir and
// returns the corpus. A file that fails to parse is logged and skipped;
// a missing directory is an error.
//
// Formats: .csv yields one document per data row (header skipped,
// fields rejoined with commas so the metadata extractor sees the
// positional layout); .jsonl yields one document per line; .txt, .md
// and .json yield one document per file.
func LoadDirectory(dir string, logger *slog.Logger) ([]store.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFileNotFound, "read corpus directory %s", dir)
	}

	var docs []store.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !supportedExtensions[ext] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		loaded, err := loadFile(path, ext)
		if err != nil {
			logger.Error("skipping unreadable corpus file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		logger.Debug("loaded corpus file",
			slog.String("path", path),
			slog.Int("documents", len(loaded)))
		docs = append(docs, loaded...)
	}

	logger.Info("corpus loaded",
		slog.String("dir", dir),
		slog.Int("documents", len(docs)))
	return docs, nil
}

func loadFile(path, ext string) ([]store.Document, error) {
	switch ext {
	case ".csv":
		return loadCSV(path)
	case ".jsonl":
		return loadLines(path)
	default:
		return loadWhole(path)
	}
}

func loadCSV(path string) ([]store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}

	// First record is the header.
	docs := make([]store.Document, 0, len(records)-1)
	for _, record := range records[1:] {
		text := strings.Join(record, ",")
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, store.NewDocument(text))
	}
	return docs, nil
}

func loadLines(path string) ([]store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []store.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		docs = append(docs, store.NewDocument(line))
	}
	return docs, scanner.Err()
}

func loadWhole(path string) ([]store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []store.Document{store.NewDocument(text)}, nil
}
