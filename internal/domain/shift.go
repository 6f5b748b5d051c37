package domain

import "time"

// 数据库中日期与时间均以字符串形式存取，格式固定，方便无损地在查询和存储之间传递
const (
	ShiftDateLayout = "2006-01-02"
	ShiftTimeLayout = "15:04:05"
)

type Shift struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Name        string    `json:"name"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}

// ShiftOrder 描述查询班次时的一个排序条件
type ShiftOrder struct {
	Field     string
	Direction string // ASC 或 DESC
}

// ShiftFilter 描述按字段精确匹配查找单个班次的条件，为 nil 的字段不参与匹配
type ShiftFilter struct {
	ID          *string
	Date        *string
	StartTime   *string
	EndTime     *string
	IsPublished *bool
}

// ShiftPatch 描述更新班次时客户端提交的部分字段
type ShiftPatch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Name      *string
}
