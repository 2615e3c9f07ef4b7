package table

// DefaultChunkSize - предел строк в одной части для импорта в карты.
const DefaultChunkSize = 2000

// Partition режет строки на последовательные части не длиннее size с сохранением
// порядка. size <= 0 означает DefaultChunkSize. Пустой вход даёт nil, а не одну пустую часть.
// Части разделяют память с rows.
func Partition[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(rows) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}
