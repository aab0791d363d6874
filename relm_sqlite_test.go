package relm

import (
	"context"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteDB 每个测试一个独立的共享内存库
func sqliteDB(t *testing.T) *DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s.db?cache=shared&mode=memory", t.Name())
	db, err := Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestSQLite_Lifecycle(t *testing.T) {
	db := sqliteDB(t)
	author := db.MustDefine("author").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", FieldSpec{Type: "TEXT", Unique: true, NotNull: true})

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))

	for i := 1; i <= 5; i++ {
		inst := author.MustBuild(map[string]any{"name": fmt.Sprintf("name%d", i)})
		require.NoError(t, inst.Flush(ctx))
		assert.True(t, inst.Created())
		assert.NotNil(t, inst.RowID())
	}

	count, err := db.Count(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	got, err := db.FindOne(ctx, author, C("name").EQ("name1"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "name1", got.MustGet("name"))

	// 改名再读回来
	require.NoError(t, got.Set("name", "renamed"))
	require.NoError(t, got.Flush(ctx, "name"))
	reloaded, err := db.FindByPK(ctx, author, got.RowID())
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "renamed", reloaded.MustGet("name"))

	// 删除之后按主键找不到
	require.NoError(t, reloaded.Remove(ctx))
	missing, err := db.FindByPK(ctx, author, got.RowID())
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, err = db.FindByPKChecked(ctx, author, got.RowID())
	assert.Equal(t, ErrNoRows, err)

	count, err = db.Count(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSQLite_FindOptions(t *testing.T) {
	db := sqliteDB(t)
	author := db.MustDefine("author").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", FieldSpec{Type: "TEXT"})

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))
	for _, name := range []string{"Carol", "alice", "Bob"} {
		inst := author.MustBuild(map[string]any{"name": name})
		require.NoError(t, inst.Flush(ctx))
	}

	// 默认大小写不敏感排序
	res, err := db.Find(author).OrderBy(Asc("name")).All(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "alice", res.Items[0].MustGet("name"))
	assert.Equal(t, "Bob", res.Items[1].MustGet("name"))
	assert.Equal(t, "Carol", res.Items[2].MustGet("name"))

	// 分页加总数
	res, err = db.Find(author).
		OrderBy(Asc("name")).
		Limit(2).Offset(1).
		FetchTotalCount().
		All(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Bob", res.Items[0].MustGet("name"))
	assert.Equal(t, int64(3), res.TotalCount)

	// glob 匹配
	res, err = db.Find(author).Where(C("name").Glob("[CB]*")).All(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestSQLite_OneToMany(t *testing.T) {
	db := sqliteDB(t)
	author := db.MustDefine("author").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", FieldSpec{Type: "TEXT"})
	book := db.MustDefine("book").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("title", FieldSpec{Type: "TEXT"})
	require.NoError(t, author.OneToMany(book, "books", WithCompanionField("author")))

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))

	a := author.MustBuild(map[string]any{"name": "a1"})
	require.NoError(t, a.Flush(ctx))
	b1 := book.MustBuild(map[string]any{"title": "t1"})
	require.NoError(t, b1.Flush(ctx))
	b2 := book.MustBuild(map[string]any{"title": "t2"})
	require.NoError(t, b2.Flush(ctx))

	books, err := a.Many("books")
	require.NoError(t, err)
	require.NoError(t, books.Link(ctx, b1, b2))

	res, err := books.Find(ctx, &FindOptions{Sort: []Sort{Asc("title")}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "t1", res.Items[0].MustGet("title"))

	// 对侧的 many-to-one 访问器指回作者
	linked, err := db.FindByPK(ctx, book, b1.RowID())
	require.NoError(t, err)
	owner, err := linked.One("author")
	require.NoError(t, err)
	gotAuthor, err := owner.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, gotAuthor)
	assert.Equal(t, "a1", gotAuthor.MustGet("name"))

	require.NoError(t, books.UnlinkByPK(ctx, b2.RowID()))
	res, err = books.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestSQLite_ManyToMany(t *testing.T) {
	db := sqliteDB(t)
	book := db.MustDefine("book").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("title", FieldSpec{Type: "TEXT"})
	tag := db.MustDefine("tag").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("label", FieldSpec{Type: "TEXT"})
	require.NoError(t, book.ManyToMany(tag, "tags", WithCompanionField("books")))

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))

	b := book.MustBuild(map[string]any{"title": "t1"})
	require.NoError(t, b.Flush(ctx))
	t1 := tag.MustBuild(map[string]any{"label": "go"})
	require.NoError(t, t1.Flush(ctx))
	t2 := tag.MustBuild(map[string]any{"label": "db"})
	require.NoError(t, t2.Flush(ctx))

	tags, err := b.Multi("tags")
	require.NoError(t, err)
	require.NoError(t, tags.LinkByPK(ctx, t1.RowID(), t2.RowID()))

	res, err := tags.Find(ctx, &FindOptions{Sort: []Sort{Asc("label")}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "db", res.Items[0].MustGet("label"))
	assert.Len(t, res.RelationItems, 2)

	// 反向访问器
	booksOfT1, err := t1.Multi("books")
	require.NoError(t, err)
	back, err := booksOfT1.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, back.Items, 1)
	assert.Equal(t, "t1", back.Items[0].MustGet("title"))

	require.NoError(t, tags.UnlinkByPK(ctx, t2.RowID()))
	res, err = tags.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestSQLite_ImplicitRowID(t *testing.T) {
	db := sqliteDB(t)
	note := db.MustDefine("note").
		MustAddField("body", FieldSpec{Type: "TEXT"})

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))

	inst := note.MustBuild(map[string]any{"body": "b1"})
	require.NoError(t, inst.Flush(ctx))
	require.NotNil(t, inst.RowID())

	got, err := db.FindByPK(ctx, note, inst.RowID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b1", got.MustGet("body"))
	assert.Equal(t, inst.RowID(), got.RowID())

	require.NoError(t, got.Set("body", "b2"))
	require.NoError(t, got.Flush(ctx))
	reloaded, err := db.FindByPK(ctx, note, inst.RowID())
	require.NoError(t, err)
	assert.Equal(t, "b2", reloaded.MustGet("body"))

	require.NoError(t, reloaded.Remove(ctx))
	missing, err := db.FindByPK(ctx, note, inst.RowID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_Joins(t *testing.T) {
	db := sqliteDB(t)
	author := db.MustDefine("author").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("name", FieldSpec{Type: "TEXT"})
	book := db.MustDefine("book").
		MustAddField("id", FieldSpec{Type: "INTEGER", PrimaryKey: true}).
		MustAddField("title", FieldSpec{Type: "TEXT"})
	require.NoError(t, book.ManyToOne(author, "author"))

	ctx := context.Background()
	require.NoError(t, db.FlushSchema(ctx))

	a := author.MustBuild(map[string]any{"name": "a1"})
	require.NoError(t, a.Flush(ctx))
	withAuthor := book.MustBuild(map[string]any{"title": "t1", "authorid": a.RowID()})
	require.NoError(t, withAuthor.Flush(ctx))
	orphan := book.MustBuild(map[string]any{"title": "t2"})
	require.NoError(t, orphan.Flush(ctx))

	// inner join 只留有作者的书
	res, err := db.Find(book).Join("author", JoinInner).All(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Joined["author"], 1)
	assert.Equal(t, "a1", res.Joined["author"][0].MustGet("name"))

	// left join 没命中的位置是 nil
	res, err = db.Find(book).
		Join("author", JoinLeft).
		OrderBy(Asc("title")).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Len(t, res.Joined["author"], 2)
	assert.NotNil(t, res.Joined["author"][0])
	assert.Nil(t, res.Joined["author"][1])
}
