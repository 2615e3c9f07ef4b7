package table

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"rozysk-service/internal/address"
	"rozysk-service/internal/plate"
)

// DefaultPlateColumn - столбец, в который записывается найденный номер.
const DefaultPlateColumn = "НОМЕРНОЙ ЗНАК"

// Filter - список допустимых значений столбца. Пустой список не фильтрует.
type Filter struct {
	Column  string
	Allowed []string
}

type Stats struct {
	Input            int `json:"input"`
	DroppedDistant   int `json:"dropped_distant"`
	DroppedByFilters int `json:"dropped_by_filters"`
	PlatesFound      int `json:"plates_found"`
	Output           int `json:"output"`
}

type Result struct {
	Table Table
	// Columns - найденные столбцы по ролям.
	Columns map[Role]string
	// DistinctValues считаются после фильтра по региону и до вторичных фильтров.
	DistinctValues map[string][]string
	Missing        []Role
	SkippedFilters []string
	Stats          Stats
}

type Option func(*Pipeline)

func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

func WithPlateColumn(name string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(name) != "" {
			p.plateColumn = name
		}
	}
}

// Pipeline применяет извлечение номера, очистку адреса и фильтр по региону к
// каждой строке таблицы. Не хранит состояния между вызовами.
type Pipeline struct {
	normalizer  *address.Normalizer
	classifier  *address.Classifier
	extractor   *plate.Extractor
	plateColumn string
	log         zerolog.Logger
}

func NewPipeline(lex *address.Lexicon, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer:  address.NewNormalizer(lex),
		classifier:  address.NewClassifier(lex),
		extractor:   plate.NewExtractor(),
		plateColumn: DefaultPlateColumn,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process = Prepare + ApplyFilters.
func (p *Pipeline) Process(t Table, filters []Filter) Result {
	return p.ApplyFilters(p.Prepare(t), filters)
}

// Prepare выполняет построчную обработку без вторичных фильтров.
// Входная таблица не изменяется.
func (p *Pipeline) Prepare(t Table) Result {
	columns, missing := DetectColumns(t.Columns)
	res := Result{
		Columns:        columns,
		DistinctValues: map[string][]string{},
		Missing:        missing,
		Stats:          Stats{Input: t.Len()},
	}

	addressCol, hasAddress := columns[RoleAddress]
	vehicleCol, hasVehicle := columns[RoleVehicleData]

	if !hasAddress {
		p.log.Warn().Strs("columns", t.Columns).Msg("address column not found, region filter skipped")
	}

	outColumns := append([]string(nil), t.Columns...)
	if hasVehicle && indexOf(outColumns, p.plateColumn) < 0 {
		at := indexOf(outColumns, vehicleCol) + 1
		outColumns = append(outColumns[:at], append([]string{p.plateColumn}, outColumns[at:]...)...)
	}

	rows := make([]Record, 0, len(t.Rows))
	for _, src := range t.Rows {
		row := src.clone()

		if hasAddress {
			raw := row[addressCol]
			stripped := p.normalizer.Strip(raw)
			if p.classifier.IsDistant(stripped) {
				res.Stats.DroppedDistant++
				continue
			}
			if raw != "" {
				row[addressCol] = p.normalizer.AppendRegion(stripped)
			}
		}

		if hasVehicle {
			found := p.extractor.Extract(row[vehicleCol])
			row[p.plateColumn] = found.Plate
			row[vehicleCol] = found.Residual
			if found.Plate != "" {
				res.Stats.PlatesFound++
			}
		}

		rows = append(rows, row)
	}

	for _, role := range []Role{RoleAddressType, RoleNewCarFlag} {
		if column, ok := columns[role]; ok {
			res.DistinctValues[column] = distinctValues(rows, column)
		}
	}

	res.Table = Table{Columns: outColumns, Rows: rows}
	res.Stats.Output = res.Table.Len()

	p.log.Info().
		Int("input", res.Stats.Input).
		Int("dropped_distant", res.Stats.DroppedDistant).
		Int("plates", res.Stats.PlatesFound).
		Int("kept", res.Stats.Output).
		Msg("table prepared")

	return res
}

// ApplyFilters оставляет строки, значения которых входят в списки допустимых.
// Фильтр по отсутствующему столбцу пропускается и попадает в SkippedFilters.
func (p *Pipeline) ApplyFilters(prepared Result, filters []Filter) Result {
	res := prepared
	res.SkippedFilters = nil
	rows := prepared.Table.Rows

	for _, f := range filters {
		if len(f.Allowed) == 0 {
			continue
		}
		if !prepared.Table.HasColumn(f.Column) {
			res.SkippedFilters = append(res.SkippedFilters, f.Column)
			p.log.Warn().Str("column", f.Column).Msg("filter column not found, filter skipped")
			continue
		}

		allowed := make(map[string]struct{}, len(f.Allowed))
		for _, v := range f.Allowed {
			allowed[v] = struct{}{}
		}

		kept := make([]Record, 0, len(rows))
		for _, row := range rows {
			if _, ok := allowed[row[f.Column]]; ok {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	res.Table = Table{Columns: prepared.Table.Columns, Rows: rows}
	res.Stats.DroppedByFilters = prepared.Table.Len() - res.Table.Len()
	res.Stats.Output = res.Table.Len()
	return res
}

// distinctValues возвращает отсортированные непустые значения столбца.
func distinctValues(rows []Record, column string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, row := range rows {
		v := row[column]
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
