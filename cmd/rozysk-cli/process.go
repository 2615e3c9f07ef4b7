package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rozysk-service/internal/address"
	"rozysk-service/internal/export"
	"rozysk-service/internal/ingest"
	"rozysk-service/internal/session"
	"rozysk-service/internal/table"
)

type processOptions struct {
	outDir       string
	size         int
	plateColumn  string
	addressTypes []string
	newCarFlags  []string
	parallel     int
}

type fileReport struct {
	input   string
	stats   table.Stats
	missing []table.Role
	parts   []string
}

func newProcessCmd() *cobra.Command {
	opts := processOptions{}

	cmd := &cobra.Command{
		Use:   "process FILE...",
		Short: "Обработать выгрузки и записать части CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "каталог для частей")
	cmd.Flags().IntVar(&opts.size, "size", table.DefaultChunkSize, "строк в одной части")
	cmd.Flags().StringVar(&opts.plateColumn, "plate-column", table.DefaultPlateColumn, "столбец для номерного знака")
	cmd.Flags().StringArrayVar(&opts.addressTypes, "address-type", nil, "оставить только этот тип адреса (можно несколько)")
	cmd.Flags().StringArrayVar(&opts.newCarFlags, "new-car-flag", nil, "оставить только это значение флага нового авто (можно несколько)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "сколько файлов обрабатывать одновременно")

	return cmd
}

func runProcess(cmd *cobra.Command, files []string, opts processOptions) error {
	log := newLogger()

	lex, err := loadLexicon(lexiconPath)
	if err != nil {
		return err
	}
	pipeline := table.NewPipeline(lex, table.WithLogger(log), table.WithPlateColumn(opts.plateColumn))
	selection := session.Selection{AddressTypes: opts.addressTypes, NewCarFlags: opts.newCarFlags}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	reports := make([]fileReport, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(cmd.Context())
	if opts.parallel > 0 {
		g.SetLimit(opts.parallel)
	}

	for i, file := range files {
		i, file := i, file // per-iteration copies (go directive is 1.21)
		g.Go(func() error {
			report, err := processFile(ctx, pipeline, file, selection, opts, multipleOutputs(files), log)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			mu.Lock()
			reports[i] = report
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range reports {
		printf(cmd, "%s: строк %d, удалено (регион) %d, удалено (фильтры) %d, номеров %d, осталось %d, частей %d\n",
			r.input, r.stats.Input, r.stats.DroppedDistant, r.stats.DroppedByFilters, r.stats.PlatesFound, r.stats.Output, len(r.parts))
		if len(r.missing) > 0 {
			printf(cmd, "  не найдены столбцы: %v\n", r.missing)
		}
		for _, p := range r.parts {
			printf(cmd, "  %s\n", p)
		}
	}
	return nil
}

func processFile(
	ctx context.Context,
	pipeline *table.Pipeline,
	file string,
	selection session.Selection,
	opts processOptions,
	subdir bool,
	log zerolog.Logger,
) (fileReport, error) {
	if err := ctx.Err(); err != nil {
		return fileReport{}, err
	}

	f, err := os.Open(file)
	if err != nil {
		return fileReport{}, err
	}
	defer f.Close()

	parsed, err := ingest.Read(file, f)
	if err != nil {
		return fileReport{}, err
	}

	prepared := pipeline.Prepare(parsed)
	result := pipeline.ApplyFilters(prepared, selection.Filters(prepared.Columns))
	for _, skipped := range result.SkippedFilters {
		log.Warn().Str("file", file).Str("column", skipped).Msg("filter skipped")
	}

	parts, err := export.Parts(result.Table, opts.size)
	if err != nil {
		return fileReport{}, err
	}

	dir := opts.outDir
	if subdir {
		dir = filepath.Join(opts.outDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fileReport{}, err
		}
	}

	report := fileReport{input: file, stats: result.Stats, missing: prepared.Missing}
	for _, part := range parts {
		path := filepath.Join(dir, part.FileName)
		if err := os.WriteFile(path, part.Content, 0o644); err != nil {
			return fileReport{}, fmt.Errorf("write part %d: %w", part.Number, err)
		}
		report.parts = append(report.parts, path)
	}

	log.Debug().Str("file", file).Int("parts", len(parts)).Msg("file processed")
	return report, nil
}

// multipleOutputs: при нескольких входных файлах части каждого пишутся в свой подкаталог.
func multipleOutputs(files []string) bool {
	return len(files) > 1
}

func loadLexicon(path string) (*address.Lexicon, error) {
	if path == "" {
		return address.DefaultLexicon(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	return address.LoadLexicon(f)
}
