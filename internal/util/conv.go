package util

import (
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseUintParam 解析路径/查询参数中的正整数 ID
func ParseUintParam(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, Validationf("invalid id %q", s)
	}
	return uint(id), nil
}

// ParseIntDefault 解析整数查询参数，为空时返回默认值
func ParseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, Validationf("invalid integer %q", s)
	}
	return v, nil
}
