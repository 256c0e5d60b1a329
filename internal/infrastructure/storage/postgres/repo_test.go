package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/domain"
	"glasserp/internal/domain/filter"
)

type testMaterial struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	Stock     int       `db:"stock"`
	CreatedAt time.Time `db:"created_at"`
}

func newTestRepo() *BaseRepo[testMaterial] {
	return NewBaseRepo[testMaterial](nil, TableConfig{
		Table:         "materials",
		Entity:        "material",
		SearchColumns: []string{"name", "code"},
		Unique:        map[string]string{"materials_code_key": "code"},
	})
}

func TestBaseRepo_ApplyFilter(t *testing.T) {
	repo := newTestRepo()
	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   domain.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "greater",
			filter:   domain.ListFilter{Filters: []filter.Item{{Field: "stock", Operator: filter.Greater, Value: 10}}},
			wantSQL:  "SELECT id, name, code, stock, created_at FROM materials WHERE stock > $1",
			wantArgs: []any{10},
		},
		{
			name:     "less",
			filter:   domain.ListFilter{Filters: []filter.Item{{Field: "stock", Operator: filter.Less, Value: 5}}},
			wantSQL:  "SELECT id, name, code, stock, created_at FROM materials WHERE stock < $1",
			wantArgs: []any{5},
		},
		{
			name:     "is null",
			filter:   domain.ListFilter{Filters: []filter.Item{{Field: "code", Operator: filter.IsNull}}},
			wantSQL:  "SELECT id, name, code, stock, created_at FROM materials WHERE code IS NULL",
			wantArgs: nil,
		},
		{
			name:     "search spans search columns",
			filter:   domain.ListFilter{Search: "pvb"},
			wantSQL:  "SELECT id, name, code, stock, created_at FROM materials WHERE (name ILIKE $1 OR code ILIKE $2)",
			wantArgs: []any{"%pvb%", "%pvb%"},
		},
		{
			name:     "date range uses created_at",
			filter:   domain.ListFilter{From: &from},
			wantSQL:  "SELECT id, name, code, stock, created_at FROM materials WHERE created_at >= $1",
			wantArgs: []any{from},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.ApplyFilter(repo.Select(), tt.filter)
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
				return
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBaseRepo_ApplyFilter_RejectsUnknown(t *testing.T) {
	repo := newTestRepo()

	_, err := repo.ApplyFilter(repo.Select(), domain.ListFilter{
		Filters: []filter.Item{{Field: "password", Operator: filter.Equal, Value: "x"}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = repo.ApplyFilter(repo.Select(), domain.ListFilter{
		Filters: []filter.Item{{Field: "stock", Operator: "between", Value: 1}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestBaseRepo_ParseOrderBy(t *testing.T) {
	repo := newTestRepo()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "created_at DESC"},
		{in: "name", want: "name ASC"},
		{in: "+stock", want: "stock ASC"},
		{in: "-created_at", want: "created_at DESC"},
		{in: "name; DROP TABLE materials", wantErr: true},
	}
	for _, tt := range tests {
		got, err := repo.parseOrderBy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestBaseRepo_MapWriteErr(t *testing.T) {
	repo := newTestRepo()

	dup := repo.mapWriteErr(&pgconn.PgError{Code: "23505", ConstraintName: "materials_code_key"})
	assert.True(t, apperror.IsCode(dup, apperror.CodeDuplicate))
	assert.True(t, IsUniqueViolation(dup))

	other := repo.mapWriteErr(errors.New("connection reset"))
	assert.False(t, apperror.IsAppError(other))
	assert.Contains(t, other.Error(), "write materials")
}
