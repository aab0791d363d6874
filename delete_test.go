package relm

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coderi421/relm/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleter_Build(t *testing.T) {
	db, _ := mockDB(t)
	foo := fooModel(t, db)

	testCases := []struct {
		name      string
		d         *Deleter
		wantQuery *Query
		wantErr   error
	}{
		{
			name: "where",
			d:    NewDeleter(db, foo).Where(C("id").EQ(7)),
			wantQuery: &Query{
				SQL:  "DELETE FROM `foo` WHERE `id` = :p1;",
				Args: []any{sql.Named("p1", 7)},
			},
		},
		{
			name: "multiple criteria are anded",
			d:    NewDeleter(db, foo).Where(C("id").GT(1), C("name").EQ("n")),
			wantQuery: &Query{
				SQL: "DELETE FROM `foo` WHERE (`id` > :p1) AND (`name` = :p2);",
				Args: []any{
					sql.Named("p1", 1),
					sql.Named("p2", "n"),
				},
			},
		},
		{
			// 没有条件的删除必须显式走 RemoveAll
			name:    "no where",
			d:       NewDeleter(db, foo),
			wantErr: errs.ErrEmptyWhere,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := tc.d.Build()
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantQuery, q)
		})
	}
}

func TestDB_Remove(t *testing.T) {
	db, mock := mockDB(t)
	foo := fooModel(t, db)
	mock.ExpectPrepare("DELETE FROM `foo` WHERE `id` = :p1;").
		ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))

	res := db.Remove(context.Background(), foo, C("id").EQ(1))
	require.NoError(t, res.Err())
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// 空条件直接在编译期拒绝，不会碰到连接
	res = db.Remove(context.Background(), foo)
	assert.Equal(t, errs.ErrEmptyWhere, res.Err())
}

func TestDB_RemoveAll(t *testing.T) {
	db, mock := mockDB(t)
	foo := fooModel(t, db)
	mock.ExpectPrepare("DELETE FROM `foo`;").
		ExpectExec().WillReturnResult(sqlmock.NewResult(0, 5))

	res := db.RemoveAll(context.Background(), foo)
	require.NoError(t, res.Err())
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(5), affected)
}
