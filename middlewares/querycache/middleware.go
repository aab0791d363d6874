package querycache

import (
	"context"
	"fmt"

	"github.com/coderi421/relm"
)

// Store 缓存原始行集。实现见 memory 和 redis 子包。
type Store interface {
	Get(ctx context.Context, key string) ([]map[string]any, bool, error)
	Set(ctx context.Context, key string, rows []map[string]any) error
}

// MiddlewareBuilder caches SELECT row sets by compiled SQL + arguments.
// TTL-only：写操作不做失效，按需选择开启。
type MiddlewareBuilder struct {
	store Store
}

func NewBuilder(store Store) *MiddlewareBuilder {
	return &MiddlewareBuilder{store: store}
}

func (m *MiddlewareBuilder) Build() relm.Middleware {
	return func(next relm.Handler) relm.Handler {
		return func(ctx context.Context, qc *relm.QueryContext) *relm.QueryResult {
			if m.store == nil || qc.Type != "SELECT" {
				return next(ctx, qc)
			}

			key := cacheKey(qc.Query)
			rows, ok, err := m.store.Get(ctx, key)
			if err == nil && ok {
				return &relm.QueryResult{Result: rows}
			}

			res := next(ctx, qc)
			if res.Err == nil {
				if got, ok := res.Result.([]map[string]any); ok {
					// 回填失败不影响查询结果
					_ = m.store.Set(ctx, key, got)
				}
			}
			return res
		}
	}
}

func cacheKey(q *relm.Query) string {
	return fmt.Sprintf("%s|%v", q.SQL, q.Args)
}
