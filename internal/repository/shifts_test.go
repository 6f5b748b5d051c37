package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeShiftIDs(t *testing.T) {
	// 同一个 id 重复出现时只保留一个，避免和 IN 查询的结果数量比对不一致
	assert.Equal(t, []string{"a", "b"}, dedupeShiftIDs([]string{"b", "a", "b", "a"}))
	assert.Equal(t, []string{"a"}, dedupeShiftIDs([]string{"a"}))
	assert.Empty(t, dedupeShiftIDs(nil))
}
