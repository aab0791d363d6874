package querylog

import (
	"context"
	"database/sql"
	"log"
	"testing"

	"github.com/coderi421/relm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMiddlewareBuilder(t *testing.T) {
	var query string
	var args []any

	customLogFunc := func(q string, as []any) {
		query = q
		args = as
		log.Printf("sql: %s, args: %v", query, args)
	}

	m := NewBuilder().LogFunc(customLogFunc)

	db, err := relm.Open("sqlite3",
		"file:querylog.db?cache=shared&mode=memory",
		relm.DBWithMiddlewares(m.Build()))
	require.NoError(t, err)
	defer db.Close()

	foo := db.MustDefine("foo").
		MustAddField("id", relm.FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", relm.FieldSpec{Type: "TEXT"})

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))
	assert.Equal(t, "CREATE TABLE foo(id INTEGER PRIMARY KEY, name TEXT)", query)

	inst := foo.MustBuild(map[string]any{"name": "Tom"})
	require.NoError(t, inst.Flush(ctx))
	assert.Equal(t, "INSERT INTO `foo` (`name`) VALUES (:p1);", query)
	assert.Equal(t, []any{sql.Named("p1", "Tom")}, args)

	_, err = db.FindOne(ctx, foo, relm.C("id").EQ(10))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id`, `name` FROM `foo` WHERE `id` = :p1 LIMIT :p2;", query)
	assert.Equal(t, []any{sql.Named("p1", 10), sql.Named("p2", 1)}, args)
}
