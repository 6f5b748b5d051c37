package handler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
)

func TestParseShiftOrders(t *testing.T) {
	t.Run("保留多个排序条件的先后顺序", func(t *testing.T) {
		orders, err := parseShiftOrders("order[date]=DESC&order[startTime]=ASC")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, domain.ShiftOrder{Field: "date", Direction: "DESC"}, orders[0])
		assert.Equal(t, domain.ShiftOrder{Field: "startTime", Direction: "ASC"}, orders[1])
	})

	t.Run("方括号被转义时同样能解析", func(t *testing.T) {
		orders, err := parseShiftOrders("order%5Bdate%5D=DESC")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, domain.ShiftOrder{Field: "date", Direction: "DESC"}, orders[0])
	})

	t.Run("忽略和排序无关的参数", func(t *testing.T) {
		orders, err := parseShiftOrders("where=2024-06-03&where=2024-06-09&order[date]=ASC")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "date", orders[0].Field)
	})

	t.Run("排序方向大小写不敏感", func(t *testing.T) {
		orders, err := parseShiftOrders("order[name]=desc")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "DESC", orders[0].Direction)
	})

	t.Run("没有排序参数时返回空", func(t *testing.T) {
		orders, err := parseShiftOrders("")
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("不支持的排序字段", func(t *testing.T) {
		_, err := parseShiftOrders("order[isPublished]=ASC")
		assert.Error(t, err)
	})

	t.Run("不支持的排序方向", func(t *testing.T) {
		_, err := parseShiftOrders("order[date]=UP")
		assert.Error(t, err)
	})
}

func TestParseShiftDateRange(t *testing.T) {
	t.Run("同时提供开始和结束日期", func(t *testing.T) {
		query := url.Values{"where": []string{"2024-06-03", "2024-06-09"}}
		start, end, err := parseShiftDateRange(query, false)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-03", start)
		assert.Equal(t, "2024-06-09", end)
	})

	t.Run("非必填时允许缺省", func(t *testing.T) {
		start, end, err := parseShiftDateRange(url.Values{}, false)
		require.NoError(t, err)
		assert.Empty(t, start)
		assert.Empty(t, end)
	})

	t.Run("必填时不允许缺省", func(t *testing.T) {
		_, _, err := parseShiftDateRange(url.Values{}, true)
		assert.Error(t, err)
	})

	t.Run("只提供一个日期", func(t *testing.T) {
		query := url.Values{"where": []string{"2024-06-03"}}
		_, _, err := parseShiftDateRange(query, false)
		assert.Error(t, err)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		query := url.Values{"where": []string{"2024-06-03", "06/09/2024"}}
		_, _, err := parseShiftDateRange(query, false)
		assert.Error(t, err)
	})
}
