package relm

// Query 是编译结果：SQL 文本加上命名参数。
type Query struct {
	SQL  string
	Args []any
}

type QueryBuilder interface {
	Build() (*Query, error)
}
