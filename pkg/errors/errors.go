package errors

import (
	"errors"

	"gorm.io/gorm"
)

// 网关（数据库）层错误分类
// 依赖 gorm.Config.TranslateError，驱动错误会被翻译为下列 gorm 哨兵错误

// IsNotFound 记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsForeignKeyViolation 外键引用的记录不存在
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

// IsDuplicateKey 唯一约束冲突
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
