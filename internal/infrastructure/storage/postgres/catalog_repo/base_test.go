package catalog_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
)

func newTestBase() *Base[any] {
	return NewBase[any](nil, "test_table", []string{"id", "code", "name", "is_default"}, func() any { return nil })
}

func TestParseOrderBy(t *testing.T) {
	repo := newTestBase()

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{"default", "", "name ASC", false},
		{"plain field", "code", "code ASC", false},
		{"descending", "-created_at", "created_at DESC", false},
		{"explicit ascending", "+name", "name ASC", false},
		{"table specific column", "is_default", "is_default ASC", false},
		{"unknown column", "password", "", true},
		{"bare dash", "-", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.parseOrderBy(tt.orderBy)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseSelect_SQL(t *testing.T) {
	repo := newTestBase()

	q := repo.baseSelect().
		Where(squirrel.Eq{"code": "HQ"}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, code, name, is_default FROM test_table WHERE code = $1 AND deletion_mark = $2 LIMIT 1", sql)
	assert.Equal(t, []any{"HQ", false}, args)
}

func TestGetForUpdate_SQL(t *testing.T) {
	repo := newTestBase()

	q := repo.baseSelect().
		Where(squirrel.Eq{"id": "some-id"}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, code, name, is_default FROM test_table WHERE id = $1 FOR UPDATE", sql)
	assert.Equal(t, []any{"some-id"}, args)
}
