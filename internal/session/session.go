// Package session хранит обработанную выгрузку и выбранные пользователем фильтры
// между запросами. Состояние живёт не дольше TTL.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rozysk-service/internal/table"
)

var ErrNotFound = errors.New("session not found")

// Selection - выбранные значения вторичных фильтров. Пустой список не фильтрует.
type Selection struct {
	AddressTypes []string `json:"address_types"`
	NewCarFlags  []string `json:"new_car_flags"`
}

func (s Selection) IsEmpty() bool {
	return len(s.AddressTypes) == 0 && len(s.NewCarFlags) == 0
}

// Filters переводит выбор в фильтры конвейера по найденным столбцам.
// Выбор по роли без столбца превращается в фильтр с пустым именем и будет пропущен.
func (s Selection) Filters(columns map[table.Role]string) []table.Filter {
	var filters []table.Filter
	if len(s.AddressTypes) > 0 {
		filters = append(filters, table.Filter{Column: columns[table.RoleAddressType], Allowed: s.AddressTypes})
	}
	if len(s.NewCarFlags) > 0 {
		filters = append(filters, table.Filter{Column: columns[table.RoleNewCarFlag], Allowed: s.NewCarFlags})
	}
	return filters
}

type Session struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	FileName  string       `json:"file_name"`
	Prepared  table.Result `json:"prepared"`
	Selection Selection    `json:"selection"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store - хранилище сессий. Update сериализует изменения одной сессии.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
