package querylog

import (
	"context"
	"log"

	"github.com/coderi421/relm"
)

type MiddlewareBuilder struct {
	logFunc func(sql string, args []any)
}

func NewBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{}
}

// LogFunc 这里如果需要配置的参数比较多，可以使用 函数选项模式
func (m *MiddlewareBuilder) LogFunc(fn func(sql string, args []any)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

func (m *MiddlewareBuilder) Build() relm.Middleware {
	if m.logFunc == nil {
		m.logFunc = func(sql string, args []any) {
			log.Printf("sql: %s, args: %v", sql, args)
		}
	}
	return func(next relm.Handler) relm.Handler {
		return func(ctx context.Context, qc *relm.QueryContext) *relm.QueryResult {
			// SQL 在进链前已经编译好，直接记录
			m.logFunc(qc.Query.SQL, qc.Query.Args)
			return next(ctx, qc)
		}
	}
}
