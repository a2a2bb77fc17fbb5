package repo

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-library-api/internal/domain"
)

// The borrow model must stay migratable on every supported driver: a
// `where:` in a gorm index tag becomes a partial-index WHERE clause in the
// generated DDL, which mysql rejects at AutoMigrate time.
func TestBorrowModelTagsArePortable(t *testing.T) {
	typ := reflect.TypeOf(domain.Borrow{})
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		require.NotContains(t, f.Tag.Get("gorm"), "where:",
			"field %s carries dialect-specific DDL in its tag", f.Name)
	}
}

func TestPartialIndexDialectGuard(t *testing.T) {
	require.True(t, supportsPartialIndex("postgres"))
	require.False(t, supportsPartialIndex("mysql"))
	require.False(t, supportsPartialIndex(""))
}

func TestActiveBorrowIndexSQL(t *testing.T) {
	require.True(t, strings.HasPrefix(uxActiveBorrowSQL, "CREATE UNIQUE INDEX IF NOT EXISTS ux_active_borrow"))
	require.Contains(t, uxActiveBorrowSQL, "(user_email, book_isbn)")
	require.Contains(t, uxActiveBorrowSQL, "WHERE return_date IS NULL")
}
