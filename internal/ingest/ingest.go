// Package ingest превращает загруженные CSV и XLSX файлы в table.Table.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"rozysk-service/internal/table"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat определяет формат по расширению файла.
// Старый двоичный .xls не поддерживается.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

// Read читает файл целиком в зависимости от расширения имени.
func Read(fileName string, r io.Reader) (table.Table, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return table.Table{}, err
	}

	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return table.Table{}, fmt.Errorf("read csv: %w", err)
		}
		return ReadCSV(data)
	}
}

// ReadCSV разбирает CSV в UTF-8 (с BOM или без) или в Windows-1251.
// Разделитель определяется по строке заголовка: ";", "," или табуляция.
func ReadCSV(data []byte) (table.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return table.Table{}, ErrEmptyFile
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
		if err != nil {
			return table.Table{}, fmt.Errorf("decode cp1251: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return table.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return build(rows)
}

// ReadXLSX читает первый лист книги.
func ReadXLSX(r io.Reader) (table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return table.Table{}, fmt.Errorf("%w: no sheets", ErrEmptyFile)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return table.Table{}, fmt.Errorf("read rows: %w", err)
	}
	return build(rows)
}

func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}

	best, bestCount := ',', bytes.Count(header, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// build превращает строки в таблицу: первая строка - заголовок.
// Пустые строки пропускаются, короткие дополняются пустыми ячейками.
func build(rows [][]string) (table.Table, error) {
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return table.Table{}, ErrEmptyFile
	}

	columns := headerNames(rows[start])
	records := make([]table.Record, 0, len(rows)-start-1)
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		rec := make(table.Record, len(columns))
		for i, column := range columns {
			if i < len(row) {
				rec[column] = strings.TrimSpace(row[i])
			} else {
				rec[column] = ""
			}
		}
		records = append(records, rec)
	}

	return table.Table{Columns: columns, Rows: records}, nil
}

// headerNames даёт безымянным столбцам имена "Unnamed: N",
// а повторяющимся - суффиксы ".1", ".2".
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		n, dup := seen[name]
		seen[name] = n + 1
		if dup {
			name = name + "." + strconv.Itoa(n)
		}
		names[i] = name
	}
	return names
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
