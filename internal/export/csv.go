// Package export сериализует части результата в CSV для импорта в карты.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"rozysk-service/internal/table"
)

// PartFileName - имя файла части, нумерация с единицы.
func PartFileName(n int) string {
	return fmt.Sprintf("%d часть розыска авто.csv", n)
}

// WriteCSV пишет заголовок и строки в порядке columns, в UTF-8, разделитель ",".
// Поля с разделителем, кавычкой или переводом строки заключаются в кавычки.
func WriteCSV(w io.Writer, columns []string, rows []table.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		for j, column := range columns {
			record[j] = row[column]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Part - одна готовая часть выгрузки.
type Part struct {
	Number   int
	FileName string
	Rows     int
	Content  []byte
}

// Parts режет таблицу на части по size строк и сериализует каждую с заголовком.
func Parts(t table.Table, size int) ([]Part, error) {
	chunks := table.Partition(t.Rows, size)
	parts := make([]Part, 0, len(chunks))
	for i, chunk := range chunks {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t.Columns, chunk); err != nil {
			return nil, fmt.Errorf("part %d: %w", i+1, err)
		}
		parts = append(parts, Part{
			Number:   i + 1,
			FileName: PartFileName(i + 1),
			Rows:     len(chunk),
			Content:  buf.Bytes(),
		})
	}
	return parts, nil
}
