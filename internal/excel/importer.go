package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/overseer/internal/study"
	"github.com/example/overseer/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	FrontColumn string // Column with the question side
	BackColumn  string // Column with the answer side
	SheetName   string // Sheet to import; empty means the first sheet
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn: "A",
		BackColumn:  "B",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// CardStore is the part of the study service the importer needs.
type CardStore interface {
	CardExists(ctx context.Context, owner, subjectID int64, front string) (bool, error)
	CreateCard(ctx context.Context, owner int64, req study.CardCreate) (*models.Card, error)
}

// ImportCards imports flashcards for one subject from an Excel or CSV file.
// Rows with an empty side and cards whose front already exists in the subject are skipped.
func ImportCards(ctx context.Context, store CardStore, owner, subjectID int64, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	if config.StartRow < 1 {
		config.StartRow = 1
	}
	frontIdx, backIdx := columnToIndex(config.FrontColumn), columnToIndex(config.BackColumn)
	if frontIdx < 0 || backIdx < 0 {
		return nil, fmt.Errorf("invalid column configuration %q/%q", config.FrontColumn, config.BackColumn)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++

		front, back := cell(row, frontIdx), cell(row, backIdx)
		if front == "" || back == "" {
			result.Skipped++
			continue
		}

		exists, err := store.CardExists(ctx, owner, subjectID, front)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", i+1, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		if _, err := store.CreateCard(ctx, owner, study.CardCreate{SubjectID: subjectID, Front: front, Back: back}); err != nil {
			if errors.Is(err, study.ErrNotFound) {
				return result, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return -1
	}
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
