package utils

import "github.com/google/uuid"

// NewID 实体主键统一用 uuid 字符串（char(36)）
func NewID() string { return uuid.NewString() }
