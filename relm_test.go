package relm

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// mockDB wraps a sqlmock connection; Build-only tests never touch it.
func mockDB(t *testing.T, opts ...DBOption) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	db, err := OpenDB(sqlDB, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

// fooModel 是测试用的基准模型
func fooModel(t *testing.T, db *DB) *Model {
	t.Helper()
	return db.MustDefine("foo").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", FieldSpec{Type: "TEXT", Unique: true, NotNull: true})
}

func barModel(t *testing.T, db *DB) *Model {
	t.Helper()
	return db.MustDefine("bar").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("title", FieldSpec{Type: "TEXT"})
}
