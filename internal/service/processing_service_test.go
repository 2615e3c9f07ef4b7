package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozysk-service/internal/client"
	"rozysk-service/internal/model"
	"rozysk-service/internal/repository"
	"rozysk-service/internal/session"
	"rozysk-service/internal/table"
)

const sampleCSV = "ФИО;ДАННЫЕ АВТО;АДРЕС;ТИП АДРЕСА;ФЛАГ НОВОГО АВТО\n" +
	"Иванов;Toyota A123BC77;г. Москва, ул. Мира, д. 1, кв. 3;Регистрация;Да\n" +
	"Петров;Лада;г. Новосибирск, ул. Ленина, д. 1;Проживание;Нет\n" +
	"Сидоров;Газель АВ123С77;г. Химки, ул. Ленина, д. 2;Проживание;Нет\n"

type fakeJobs struct {
	mu      sync.Mutex
	created []model.ProcessingJob
	filters []repository.JobListFilter
	err     error
}

func (f *fakeJobs) Create(_ context.Context, job *model.ProcessingJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *job)
	return nil
}

func (f *fakeJobs) List(_ context.Context, filter repository.JobListFilter) ([]model.ProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.created, nil
}

type fakeBatch struct {
	files []string
	fail  map[string]error
}

func (f *fakeBatch) Submit(_ context.Context, fileName string, content []byte) (*client.BatchResult, error) {
	f.files = append(f.files, fileName)
	if err := f.fail[fileName]; err != nil {
		return nil, err
	}
	rows := strings.Count(string(content), "\n") - 1
	return &client.BatchResult{Success: true, TotalRows: rows, PartsCount: 1}, nil
}

type fixture struct {
	svc   *ProcessingService
	jobs  *fakeJobs
	batch *fakeBatch
	owner model.Principal
}

func newFixture(t *testing.T, chunkSize int) *fixture {
	t.Helper()

	jobs := &fakeJobs{}
	batch := &fakeBatch{fail: map[string]error{}}
	svc := NewProcessingService(
		table.NewPipeline(nil),
		session.NewMemoryStore(time.Hour),
		jobs,
		batch,
		ProcessingOptions{ChunkSize: chunkSize, MaxBytes: 1 << 20},
		zerolog.Nop(),
	)

	return &fixture{
		svc:   svc,
		jobs:  jobs,
		batch: batch,
		owner: model.Principal{UserID: uuid.New(), Role: model.UserRoleOperator},
	}
}

func (f *fixture) upload(t *testing.T) *Summary {
	t.Helper()
	summary, err := f.svc.Upload(context.Background(), f.owner, "выгрузка.csv", int64(len(sampleCSV)), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return summary
}

func TestProcessingService_Upload(t *testing.T) {
	f := newFixture(t, 2000)

	summary := f.upload(t)

	assert.Equal(t, "выгрузка.csv", summary.FileName)
	assert.Equal(t, table.Stats{Input: 3, DroppedDistant: 1, PlatesFound: 2, Output: 2}, summary.Stats)
	assert.Equal(t, 1, summary.Parts)
	assert.Empty(t, summary.MissingColumns)
	assert.Equal(t, []string{"Проживание", "Регистрация"}, summary.FilterOptions.AddressTypes)
	assert.Equal(t, []string{"Да", "Нет"}, summary.FilterOptions.NewCarFlags)

	require.Len(t, f.jobs.created, 1)
	job := f.jobs.created[0]
	assert.Equal(t, summary.SessionID, job.SessionID)
	assert.Equal(t, f.owner.UserID, job.OwnerID)
	assert.Equal(t, 2, job.KeptRows)
	assert.Equal(t, 1, job.DroppedDistant)
}

func TestProcessingService_UploadJournalFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, 2000)
	f.jobs.err = errors.New("db down")

	summary := f.upload(t)
	assert.Equal(t, 2, summary.Stats.Output)
}

func TestProcessingService_UploadErrors(t *testing.T) {
	f := newFixture(t, 2000)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.owner, "old.xls", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = f.svc.Upload(ctx, f.owner, "empty.csv", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Upload(ctx, f.owner, "", 10, strings.NewReader("a"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Upload(ctx, f.owner, "big.csv", 2<<20, strings.NewReader("a"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// размер из заголовка может врать
	_, err = f.svc.Upload(ctx, f.owner, "big.csv", 1, strings.NewReader(strings.Repeat("a", 2<<20)))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestProcessingService_Access(t *testing.T) {
	f := newFixture(t, 2000)
	ctx := context.Background()
	summary := f.upload(t)

	stranger := model.Principal{UserID: uuid.New(), Role: model.UserRoleOperator}
	_, err := f.svc.Get(ctx, stranger, summary.SessionID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	admin := model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}
	got, err := f.svc.Get(ctx, admin, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, summary.SessionID, got.SessionID)

	_, err = f.svc.Get(ctx, f.owner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessingService_Filters(t *testing.T) {
	f := newFixture(t, 2000)
	ctx := context.Background()
	summary := f.upload(t)

	filtered, err := f.svc.SetFilters(ctx, f.owner, summary.SessionID, session.Selection{
		AddressTypes: []string{"Проживание", "Проживание", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Проживание"}, filtered.Selection.AddressTypes)
	assert.Equal(t, 1, filtered.Stats.Output)
	assert.Equal(t, 1, filtered.Stats.DroppedByFilters)
	// варианты выбора не сужаются
	assert.Equal(t, []string{"Проживание", "Регистрация"}, filtered.FilterOptions.AddressTypes)

	_, err = f.svc.SetFilters(ctx, f.owner, summary.SessionID, session.Selection{NewCarFlags: []string{"Может быть"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.svc.Get(ctx, f.owner, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.Output)

	reset, err := f.svc.ResetFilters(ctx, f.owner, summary.SessionID)
	require.NoError(t, err)
	assert.True(t, reset.Selection.IsEmpty())
	assert.Equal(t, 2, reset.Stats.Output)
}

func TestProcessingService_Part(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	summary := f.upload(t)
	require.Equal(t, 2, summary.Parts)

	part, err := f.svc.Part(ctx, f.owner, summary.SessionID, 2)
	require.NoError(t, err)

	assert.Equal(t, "2 часть розыска авто.csv", part.FileName)
	assert.Equal(t, 1, part.Rows)
	lines := strings.Split(strings.TrimSpace(string(part.Content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ФИО,ДАННЫЕ АВТО,НОМЕРНОЙ ЗНАК,АДРЕС,ТИП АДРЕСА,ФЛАГ НОВОГО АВТО", lines[0])
	assert.Equal(t, `Сидоров,Газель,АВ123С77,"г. Химки, ул. Ленина, д. 2, Московская область, Россия",Проживание,Нет`, lines[1])

	_, err = f.svc.Part(ctx, f.owner, summary.SessionID, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Part(ctx, f.owner, summary.SessionID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessingService_Forward(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	summary := f.upload(t)
	f.batch.fail["2 часть розыска авто.csv"] = errors.New("timeout")

	results, err := f.svc.Forward(ctx, f.owner, summary.SessionID)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, results[0].TotalRows)
	assert.False(t, results[1].Success)
	assert.Equal(t, "timeout", results[1].Error)
	assert.Equal(t, []string{"1 часть розыска авто.csv", "2 часть розыска авто.csv"}, f.batch.files)
}

func TestProcessingService_ForwardNotConfigured(t *testing.T) {
	svc := NewProcessingService(table.NewPipeline(nil), session.NewMemoryStore(time.Hour), nil, nil, ProcessingOptions{}, zerolog.Nop())

	_, err := svc.Forward(context.Background(), model.Principal{}, uuid.New())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestProcessingService_Delete(t *testing.T) {
	f := newFixture(t, 2000)
	ctx := context.Background()
	summary := f.upload(t)

	require.NoError(t, f.svc.Delete(ctx, f.owner, summary.SessionID))

	_, err := f.svc.Get(ctx, f.owner, summary.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, summary.SessionID), ErrNotFound)
}

func TestProcessingService_Jobs(t *testing.T) {
	f := newFixture(t, 2000)
	ctx := context.Background()
	f.upload(t)

	jobs, err := f.svc.Jobs(ctx, f.owner, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = f.svc.Jobs(ctx, model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}, 0)
	require.NoError(t, err)

	require.Len(t, f.jobs.filters, 2)
	require.NotNil(t, f.jobs.filters[0].OwnerID)
	assert.Equal(t, f.owner.UserID, *f.jobs.filters[0].OwnerID)
	assert.Equal(t, 10, f.jobs.filters[0].Limit)
	assert.Nil(t, f.jobs.filters[1].OwnerID)
}
