package querycache

import (
	"context"
	"testing"
	"time"

	"github.com/coderi421/relm"
	"github.com/coderi421/relm/middlewares/querycache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareBuilder_Build(t *testing.T) {
	store := memory.NewStore(time.Minute)
	mdl := NewBuilder(store).Build()

	hits := 0
	rows := []map[string]any{{"id": int64(1), "name": "Tom"}}
	handler := mdl(func(ctx context.Context, qc *relm.QueryContext) *relm.QueryResult {
		hits++
		return &relm.QueryResult{Result: rows}
	})

	qc := &relm.QueryContext{
		Type:  "SELECT",
		Query: &relm.Query{SQL: "SELECT `id`, `name` FROM `foo`;"},
	}
	ctx := context.Background()

	res := handler(ctx, qc)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, hits)

	// 第二次命中缓存，不再落到底层
	res = handler(ctx, qc)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, rows, res.Result)

	// 不同参数是不同的缓存键
	other := &relm.QueryContext{
		Type:  "SELECT",
		Query: &relm.Query{SQL: "SELECT `id`, `name` FROM `foo`;", Args: []any{1}},
	}
	handler(ctx, other)
	assert.Equal(t, 2, hits)

	// 写操作直接透传
	exec := &relm.QueryContext{
		Type:  "UPDATE",
		Query: &relm.Query{SQL: "UPDATE `foo` SET `name` = :p1;"},
	}
	handler(ctx, exec)
	handler(ctx, exec)
	assert.Equal(t, 4, hits)
}

func TestMemoryStore_Expiration(t *testing.T) {
	store := memory.NewStore(10 * time.Millisecond)
	ctx := context.Background()
	rows := []map[string]any{{"id": int64(1)}}

	require.NoError(t, store.Set(ctx, "k", rows))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
