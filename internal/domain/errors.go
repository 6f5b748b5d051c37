package domain

import "errors"

// 班次操作被拒绝的具体原因，handler 层通过 errors.Is 判断后向客户端返回对应的提示，
// 不在这个分类中的错误一律视为存储层故障
var (
	ErrInvalidRange     = errors.New("查询的开始日期晚于结束日期")
	ErrInvalidShiftTime = errors.New("班次的开始时间必须早于结束时间")
	ErrShiftNotFound    = errors.New("班次不存在")
	ErrTimeClash        = errors.New("班次时间与同一天的其他班次冲突")
	ErrWeekLocked       = errors.New("该周的班次已发布，禁止变更")
	ErrShiftLocked      = errors.New("该班次已发布，禁止变更")
)
