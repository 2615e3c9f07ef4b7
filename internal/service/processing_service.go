package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rozysk-service/internal/client"
	"rozysk-service/internal/export"
	"rozysk-service/internal/ingest"
	"rozysk-service/internal/model"
	"rozysk-service/internal/repository"
	"rozysk-service/internal/session"
	"rozysk-service/internal/table"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNotConfigured     = errors.New("batch service is not configured")
)

type JobRecorder interface {
	Create(ctx context.Context, job *model.ProcessingJob) error
	List(ctx context.Context, filter repository.JobListFilter) ([]model.ProcessingJob, error)
}

type BatchSubmitter interface {
	Submit(ctx context.Context, fileName string, content []byte) (*client.BatchResult, error)
}

type ProcessingOptions struct {
	ChunkSize int
	MaxBytes  int64
}

type ProcessingService struct {
	pipeline  *table.Pipeline
	sessions  session.Store
	jobs      JobRecorder
	batch     BatchSubmitter
	chunkSize int
	maxBytes  int64
	log       zerolog.Logger
	now       func() time.Time
}

func NewProcessingService(
	pipeline *table.Pipeline,
	sessions session.Store,
	jobs JobRecorder,
	batch BatchSubmitter,
	opts ProcessingOptions,
	log zerolog.Logger,
) *ProcessingService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = table.DefaultChunkSize
	}
	return &ProcessingService{
		pipeline:  pipeline,
		sessions:  sessions,
		jobs:      jobs,
		batch:     batch,
		chunkSize: opts.ChunkSize,
		maxBytes:  opts.MaxBytes,
		log:       log,
		now:       time.Now,
	}
}

type FilterOptions struct {
	AddressTypes []string `json:"address_types"`
	NewCarFlags  []string `json:"new_car_flags"`
}

// Summary - состояние сессии с учётом выбранных фильтров.
type Summary struct {
	SessionID      uuid.UUID             `json:"session_id"`
	FileName       string                `json:"file_name"`
	Columns        map[table.Role]string `json:"columns"`
	MissingColumns []table.Role          `json:"missing_columns"`
	FilterOptions  FilterOptions         `json:"filter_options"`
	Selection      session.Selection     `json:"selection"`
	SkippedFilters []string              `json:"skipped_filters,omitempty"`
	Stats          table.Stats           `json:"stats"`
	Parts          int                   `json:"parts"`
	ChunkSize      int                   `json:"chunk_size"`
	CreatedAt      time.Time             `json:"created_at"`
}

type ForwardResult struct {
	Part       int    `json:"part"`
	FileName   string `json:"file_name"`
	Rows       int    `json:"rows"`
	Success    bool   `json:"success"`
	TotalRows  int    `json:"total_rows,omitempty"`
	PartsCount int    `json:"parts_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Upload разбирает файл, выполняет построчную обработку и открывает сессию.
func (s *ProcessingService) Upload(ctx context.Context, principal model.Principal, fileName string, size int64, r io.Reader) (*Summary, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	reader := r
	if s.maxBytes > 0 {
		reader = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	parsed, err := ingest.Read(fileName, bytes.NewReader(data))
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	case errors.Is(err, ingest.ErrEmptyFile):
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	sess := &session.Session{
		ID:        uuid.New(),
		OwnerID:   principal.UserID,
		FileName:  fileName,
		Prepared:  s.pipeline.Prepare(parsed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	summary := s.summarize(sess)
	s.recordJob(ctx, sess, summary)

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("file", fileName).
		Int("rows", summary.Stats.Input).
		Int("kept", summary.Stats.Output).
		Int("parts", summary.Parts).
		Msg("upload processed")

	return summary, nil
}

func (s *ProcessingService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*Summary, error) {
	sess, err := s.load(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(sess)
	return summary, nil
}

// SetFilters сохраняет выбор. Допустимы только значения, найденные в выгрузке.
func (s *ProcessingService) SetFilters(ctx context.Context, principal model.Principal, id uuid.UUID, sel session.Selection) (*Summary, error) {
	if _, err := s.load(ctx, principal, id); err != nil {
		return nil, err
	}

	sel = session.Selection{
		AddressTypes: cleanValues(sel.AddressTypes),
		NewCarFlags:  cleanValues(sel.NewCarFlags),
	}

	updated, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		if err := validateSelection(sess.Prepared, sel); err != nil {
			return err
		}
		sess.Selection = sel
		return nil
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	summary := s.summarize(updated)
	return summary, nil
}

func (s *ProcessingService) ResetFilters(ctx context.Context, principal model.Principal, id uuid.UUID) (*Summary, error) {
	return s.SetFilters(ctx, principal, id, session.Selection{})
}

// Part возвращает часть n (с единицы) текущего результата.
func (s *ProcessingService) Part(ctx context.Context, principal model.Principal, id uuid.UUID, n int) (*export.Part, error) {
	sess, err := s.load(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	current := s.current(sess)
	chunks := table.Partition(current.Table.Rows, s.chunkSize)
	if n < 1 || n > len(chunks) {
		return nil, fmt.Errorf("%w: part %d", ErrNotFound, n)
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, current.Table.Columns, chunks[n-1]); err != nil {
		return nil, err
	}
	return &export.Part{
		Number:   n,
		FileName: export.PartFileName(n),
		Rows:     len(chunks[n-1]),
		Content:  buf.Bytes(),
	}, nil
}

// Forward отправляет все части во внешний сервис по очереди.
// Ошибка отдельной части не прерывает отправку остальных.
func (s *ProcessingService) Forward(ctx context.Context, principal model.Principal, id uuid.UUID) ([]ForwardResult, error) {
	if s.batch == nil {
		return nil, ErrNotConfigured
	}

	sess, err := s.load(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	parts, err := export.Parts(s.current(sess).Table, s.chunkSize)
	if err != nil {
		return nil, err
	}

	results := make([]ForwardResult, 0, len(parts))
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := ForwardResult{Part: part.Number, FileName: part.FileName, Rows: part.Rows}
		reply, err := s.batch.Submit(ctx, part.FileName, part.Content)
		if errors.Is(err, client.ErrBatchNotConfigured) {
			return nil, ErrNotConfigured
		}
		if err != nil {
			res.Error = err.Error()
			s.log.Warn().Err(err).Str("session_id", id.String()).Int("part", part.Number).Msg("batch submit failed")
		} else {
			res.Success = reply.Success
			res.TotalRows = reply.TotalRows
			res.PartsCount = reply.PartsCount
		}
		results = append(results, res)
	}

	return results, nil
}

func (s *ProcessingService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if _, err := s.load(ctx, principal, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return s.mapStoreError(err)
	}
	return nil
}

// Jobs: администратор видит журнал всех пользователей.
func (s *ProcessingService) Jobs(ctx context.Context, principal model.Principal, limit int) ([]model.ProcessingJob, error) {
	if s.jobs == nil {
		return []model.ProcessingJob{}, nil
	}

	filter := repository.JobListFilter{Limit: limit}
	if !principal.IsAdmin() {
		owner := principal.UserID
		filter.OwnerID = &owner
	}
	return s.jobs.List(ctx, filter)
}

func (s *ProcessingService) load(ctx context.Context, principal model.Principal, id uuid.UUID) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if !principal.CanAccess(sess.OwnerID) {
		return nil, ErrPermissionDenied
	}
	return sess, nil
}

func (s *ProcessingService) mapStoreError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ProcessingService) current(sess *session.Session) table.Result {
	return s.pipeline.ApplyFilters(sess.Prepared, sess.Selection.Filters(sess.Prepared.Columns))
}

func (s *ProcessingService) summarize(sess *session.Session) *Summary {
	current := s.current(sess)
	prepared := sess.Prepared

	return &Summary{
		SessionID:      sess.ID,
		FileName:       sess.FileName,
		Columns:        prepared.Columns,
		MissingColumns: prepared.Missing,
		FilterOptions: FilterOptions{
			AddressTypes: valuesFor(prepared, table.RoleAddressType),
			NewCarFlags:  valuesFor(prepared, table.RoleNewCarFlag),
		},
		Selection:      sess.Selection,
		SkippedFilters: current.SkippedFilters,
		Stats:          current.Stats,
		Parts:          len(table.Partition(current.Table.Rows, s.chunkSize)),
		ChunkSize:      s.chunkSize,
		CreatedAt:      sess.CreatedAt,
	}
}

// recordJob пишет журнал; ошибка журнала не должна ломать загрузку.
func (s *ProcessingService) recordJob(ctx context.Context, sess *session.Session, summary *Summary) {
	if s.jobs == nil {
		return
	}

	missing := make([]string, 0, len(summary.MissingColumns))
	for _, role := range summary.MissingColumns {
		missing = append(missing, string(role))
	}

	job := &model.ProcessingJob{
		SessionID:      sess.ID,
		OwnerID:        sess.OwnerID,
		FileName:       sess.FileName,
		TotalRows:      summary.Stats.Input,
		KeptRows:       summary.Stats.Output,
		DroppedDistant: summary.Stats.DroppedDistant,
		PlatesFound:    summary.Stats.PlatesFound,
		Parts:          summary.Parts,
		MissingColumns: strings.Join(missing, ","),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to record processing job")
	}
}

func valuesFor(prepared table.Result, role table.Role) []string {
	column, ok := prepared.Columns[role]
	if !ok {
		return []string{}
	}
	values := prepared.DistinctValues[column]
	if values == nil {
		return []string{}
	}
	return values
}

func validateSelection(prepared table.Result, sel session.Selection) error {
	checks := []struct {
		role   table.Role
		values []string
	}{
		{table.RoleAddressType, sel.AddressTypes},
		{table.RoleNewCarFlag, sel.NewCarFlags},
	}

	for _, check := range checks {
		if len(check.values) == 0 {
			continue
		}
		column, ok := prepared.Columns[check.role]
		if !ok {
			return fmt.Errorf("%w: no %s column in file", ErrInvalidInput, check.role)
		}
		known := make(map[string]struct{}, len(prepared.DistinctValues[column]))
		for _, v := range prepared.DistinctValues[column] {
			known[v] = struct{}{}
		}
		for _, v := range check.values {
			if _, ok := known[v]; !ok {
				return fmt.Errorf("%w: unknown %s value %q", ErrInvalidInput, check.role, v)
			}
		}
	}
	return nil
}

// cleanValues убирает пустые значения и повторы, сохраняя порядок.
func cleanValues(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
