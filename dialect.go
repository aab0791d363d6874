package relm

var (
	MySQL   Dialect = &mysqlDialect{}
	SQLite3 Dialect = &sqlite3Dialect{}
)

// Dialect 屏蔽不同数据库之间的差异
type Dialect interface {
	quoter() byte
	// rowIDColumn is the engine's implicit row identifier, selected when a
	// model declares no primary key. Empty means the engine has none.
	rowIDColumn() string
}

type standardSQL struct {
}

func (s *standardSQL) quoter() byte {
	return '`'
}

func (s *standardSQL) rowIDColumn() string {
	return ""
}

type mysqlDialect struct {
	standardSQL
}

type sqlite3Dialect struct {
	standardSQL
}

// SQLite keeps an implicit rowid on ordinary tables.
func (s *sqlite3Dialect) rowIDColumn() string {
	return "rowid"
}
