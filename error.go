package relm

import "github.com/coderi421/relm/internal/errs"

// 将内部的 sentinel error 暴露出去
var (
	// ErrNoRows 代表 checked 查询没有找到数据
	ErrNoRows = errs.ErrNoRows
	// ErrEmptyWhere 代表 Remove 缺少 where 条件
	ErrEmptyWhere = errs.ErrEmptyWhere
	// ErrSchemaFlushed 代表 FlushSchema 被调用了第二次
	ErrSchemaFlushed = errs.ErrSchemaFlushed
	// ErrInstanceNotPersisted 代表在未持久化的实例上做了关联操作
	ErrInstanceNotPersisted = errs.ErrInstanceNotPersisted
)
