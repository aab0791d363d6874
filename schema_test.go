package relm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coderi421/relm/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_CreateSchema(t *testing.T) {
	t.Run("column order follows declaration order", func(t *testing.T) {
		db, _ := mockDB(t)
		fooModel(t, db)

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE foo(id INTEGER PRIMARY KEY, name TEXT UNIQUE NOT NULL)", ddl)
	})

	t.Run("clause order and defaults", func(t *testing.T) {
		db, _ := mockDB(t)
		db.MustDefine("doc").
			MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
			MustAddField("title", FieldSpec{Type: "TEXT", Collate: "NOCASE", NotNull: true, Default: "untitled"}).
			MustAddField("stars", FieldSpec{Type: "INTEGER", Default: 0}).
			MustAddField("note", FieldSpec{})

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Equal(t,
			"CREATE TABLE doc(id INTEGER PRIMARY KEY, "+
				"title TEXT COLLATE NOCASE NOT NULL DEFAULT 'untitled', "+
				"stars INTEGER DEFAULT 0, note)",
			ddl)
	})

	t.Run("default runs through the serializer", func(t *testing.T) {
		db, _ := mockDB(t)
		db.MustDefine("doc").
			MustAddField("tag", FieldSpec{
				Type:    "TEXT",
				Default: "x",
				Serialize: func(val any) (any, error) {
					return "v1:" + val.(string), nil
				},
			})

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE doc(tag TEXT DEFAULT 'v1:x')", ddl)
	})

	t.Run("models joined in definition order", func(t *testing.T) {
		db, _ := mockDB(t)
		db.MustDefine("a").MustAddField("x", FieldSpec{Type: "INTEGER"})
		db.MustDefine("b").MustAddField("y", FieldSpec{Type: "INTEGER"})

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Equal(t, "CREATE TABLE a(x INTEGER); CREATE TABLE b(y INTEGER)", ddl)
	})

	t.Run("relations add fk columns and constraints", func(t *testing.T) {
		db, _ := mockDB(t)
		foo := fooModel(t, db)
		barModel(t, db)
		require.NoError(t, foo.ManyToOne("bar", "owner"))

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Equal(t,
			"CREATE TABLE foo(id INTEGER PRIMARY KEY, name TEXT UNIQUE NOT NULL, "+
				"barid INTEGER, FOREIGN KEY (barid) REFERENCES bar(id)); "+
				"CREATE TABLE bar(id INTEGER PRIMARY KEY, title TEXT)",
			ddl)
	})

	t.Run("one to one fk is unique", func(t *testing.T) {
		db, _ := mockDB(t)
		foo := fooModel(t, db)
		barModel(t, db)
		require.NoError(t, foo.OneToOne("bar", "detail"))

		ddl, err := db.CreateSchema()
		require.NoError(t, err)
		assert.Contains(t, ddl, "barid INTEGER UNIQUE")
	})
}

func TestDB_FlushSchema(t *testing.T) {
	db, mock := mockDB(t)
	fooModel(t, db)

	mock.ExpectExec("CREATE TABLE foo(id INTEGER PRIMARY KEY, name TEXT UNIQUE NOT NULL)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))
	// 第二次必须报错
	assert.Equal(t, errs.ErrSchemaFlushed, db.FlushSchema(ctx))
}
