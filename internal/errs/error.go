package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRows 代表没有找到数据
	ErrNoRows = errors.New("relm: 未找到数据")

	// ErrSchemaFlushed flushSchema 只允许执行一次
	ErrSchemaFlushed = errors.New("relm: schema 已经执行过，不能重复执行")

	// ErrEmptyWhere Remove 必须带 where 条件，防止误删全表
	ErrEmptyWhere = errors.New("relm: 不带 where 条件的删除被拒绝，请使用 RemoveAll")

	// ErrNoAssignments Build 阶段要求至少一个 SET 列；Exec 把空 SET 当 no-op
	ErrNoAssignments = errors.New("relm: 没有要更新的列")

	// ErrEmptyInList IN 操作不支持空列表
	ErrEmptyInList = errors.New("relm: IN 操作的列表不能为空")

	// ErrEmptyCriteria 空的条件组合没有意义
	ErrEmptyCriteria = errors.New("relm: AND/OR 至少需要一个子条件")

	// ErrInstanceNotPersisted 实例还没有持久化，不能执行关联操作
	ErrInstanceNotPersisted = errors.New("relm: 实例尚未持久化")

	// ErrNoRowID 既没有主键字段，方言也不支持隐式 row id
	ErrNoRowID = errors.New("relm: 无法确定 row id 列")

	// ErrJoinNotAllowed 多对多 find 不允许调用方自带 join
	ErrJoinNotAllowed = errors.New("relm: 多对多查询不允许传入 join 选项")
)

func NewErrInvalidIdentifier(name string) error {
	return fmt.Errorf("relm: 非法的标识符 %q", name)
}

func NewErrUnknownField(name string) error {
	return fmt.Errorf("relm: 未知字段 %s", name)
}

func NewErrUnknownRelation(name string) error {
	return fmt.Errorf("relm: 未知关联 %s", name)
}

func NewErrUnknownModel(name string) error {
	return fmt.Errorf("relm: 未知模型 %s", name)
}

func NewErrDuplicateModel(name string) error {
	return fmt.Errorf("relm: 模型名冲突 %s", name)
}

func NewErrDuplicateField(model, field string) error {
	return fmt.Errorf("relm: 模型 %s 上的字段或关联名冲突 %s", model, field)
}

func NewErrMultiplePrimaryKeys(model string) error {
	return fmt.Errorf("relm: 模型 %s 声明了多个主键", model)
}

func NewErrValidation(field string, err error) error {
	return fmt.Errorf("relm: 字段 %s 校验失败: %w", field, err)
}

func NewErrModelMismatch(want, got string) error {
	return fmt.Errorf("relm: 模型不匹配，期望 %s 实际 %s", want, got)
}

func NewErrMissingFieldValue(field string) error {
	return fmt.Errorf("relm: 结果行中缺少字段 %s 的值", field)
}

func NewErrBadRowID(val any) error {
	return fmt.Errorf("relm: row id 类型非法 %v", val)
}

func NewErrRelationNotSettable(name string) error {
	return fmt.Errorf("relm: 不能直接给关联 %s 赋值", name)
}

func NewErrReservedCriterion(field string) error {
	return fmt.Errorf("relm: 条件中不允许引用保留列 %s", field)
}

func NewErrParamCollision(name string) error {
	return fmt.Errorf("relm: 占位符名冲突 %s", name)
}

func NewErrUnsupportedCriterion(c any) error {
	return fmt.Errorf("relm: 不支持的条件类型 %T", c)
}

func NewErrUnsupportedRelationKind(kind any) error {
	return fmt.Errorf("relm: 不支持的关联类型 %v", kind)
}
