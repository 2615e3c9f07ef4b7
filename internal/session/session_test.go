package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozysk-service/internal/table"
)

func newSession() *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		FileName: "выгрузка.csv",
		Prepared: table.Result{
			Table: table.Table{
				Columns: []string{"АДРЕС", "ТИП АДРЕСА"},
				Rows: []table.Record{
					{"АДРЕС": "г. Москва, ул. Мира", "ТИП АДРЕСА": "Работа"},
				},
			},
			Columns:        map[table.Role]string{table.RoleAddress: "АДРЕС", table.RoleAddressType: "ТИП АДРЕСА"},
			DistinctValues: map[string][]string{"ТИП АДРЕСА": {"Работа"}},
			Stats:          table.Stats{Input: 2, DroppedDistant: 1, Output: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// storeContract проверяет поведение, общее для всех реализаций Store.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	sess := newSession()

	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.FileName, got.FileName)
	assert.Equal(t, sess.Prepared.Table, got.Prepared.Table)
	assert.Equal(t, "АДРЕС", got.Prepared.Columns[table.RoleAddress])
	assert.True(t, got.Selection.IsEmpty())

	updated, err := store.Update(ctx, sess.ID, func(s *Session) error {
		s.Selection.AddressTypes = []string{"Работа"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Работа"}, updated.Selection.AddressTypes)

	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Работа"}, got.Selection.AddressTypes)

	boom := errors.New("boom")
	_, err = store.Update(ctx, sess.ID, func(s *Session) error {
		s.Selection.NewCarFlags = []string{"Да"}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Selection.NewCarFlags)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)

	_, err = store.Update(ctx, uuid.New(), func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	first, second := newSession(), newSession()
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	now = now.Add(40 * time.Minute)
	_, err := store.Update(ctx, second.ID, func(*Session) error { return nil })
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, second.ID)
	assert.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, store.sweep())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	sess := newSession()
	sess.Selection.NewCarFlags = []string{"Да"}
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	got.Selection.NewCarFlags[0] = "Нет"

	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Да"}, again.Selection.NewCarFlags)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	storeContract(t, store)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	sess := newSession()
	require.NoError(t, store.Create(ctx, sess))

	assert.Equal(t, time.Hour, mr.TTL(redisKey(sess.ID)))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelection_Filters(t *testing.T) {
	columns := map[table.Role]string{table.RoleAddressType: "ТИП АДРЕСА"}

	assert.Nil(t, Selection{}.Filters(columns))

	filters := Selection{AddressTypes: []string{"Работа"}, NewCarFlags: []string{"Да"}}.Filters(columns)
	assert.Equal(t, []table.Filter{
		{Column: "ТИП АДРЕСА", Allowed: []string{"Работа"}},
		{Column: "", Allowed: []string{"Да"}},
	}, filters)
}
