package relm

import (
	"context"
)

// QueryContext 中间件的上下文。SQL 在进链前已经编译完成，
// 中间件只读，不允许篡改语句。
type QueryContext struct {
	// Type 声明语句类型：SELECT, INSERT, UPDATE, DELETE 或 DDL
	Type string

	// Model 冗余一份给需要表信息的中间件
	Model *Model

	Query *Query
}

type QueryResult struct {
	// Result 在 SELECT 下是 []map[string]any 的原始行，
	// 其它情况下是 sql.Result
	Result any
	Err    error
}

type Middleware func(next Handler) Handler

type Handler func(ctx context.Context, qc *QueryContext) *QueryResult
