package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
)

func TestValidateShiftTime(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		startTime string
		endTime   string
		wantErr   bool
	}{
		{"合法的班次时间", "2024-06-03", "09:00:00", "17:00:00", false},
		{"日期格式错误", "2024/06/03", "09:00:00", "17:00:00", true},
		{"开始时间格式错误", "2024-06-03", "9:00", "17:00:00", true},
		{"结束时间格式错误", "2024-06-03", "09:00:00", "下午五点", true},
		{"开始时间等于结束时间", "2024-06-03", "09:00:00", "09:00:00", true},
		{"开始时间晚于结束时间", "2024-06-03", "17:00:00", "09:00:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShiftTime(tt.date, tt.startTime, tt.endTime)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShiftOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		aStart string
		aEnd   string
		bStart string
		bEnd   string
		want   bool
	}{
		{"候选的开始时间落在已有班次内", "09:00:00", "17:00:00", "16:00:00", "18:00:00", true},
		{"候选的结束时间落在已有班次内", "12:00:00", "14:00:00", "08:00:00", "13:00:00", true},
		{"候选完全包含已有班次", "09:00:00", "17:00:00", "08:00:00", "20:00:00", true},
		{"已有班次完全包含候选", "08:00:00", "20:00:00", "09:00:00", "17:00:00", true},
		{"两个班次完全相同", "09:00:00", "17:00:00", "09:00:00", "17:00:00", true},
		{"候选在已有班次之后且不相接", "09:00:00", "12:00:00", "13:00:00", "17:00:00", false},
		{"候选在已有班次之前且不相接", "13:00:00", "17:00:00", "09:00:00", "12:00:00", false},
		{"候选紧接在已有班次之后", "09:00:00", "12:00:00", "12:00:00", "14:00:00", false},
		{"候选紧接在已有班次之前", "12:00:00", "14:00:00", "09:00:00", "12:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShiftOverlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// 冲突关系是对称的
			assert.Equal(t, tt.want, ShiftOverlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name       string
		date       string
		wantMonday string
		wantSunday string
	}{
		{"周一", "2024-06-03", "2024-06-03", "2024-06-09"},
		{"周三", "2024-06-05", "2024-06-03", "2024-06-09"},
		{"周日", "2024-06-09", "2024-06-03", "2024-06-09"},
		{"下一周的周一", "2024-06-10", "2024-06-10", "2024-06-16"},
		{"跨年的周", "2025-01-01", "2024-12-30", "2025-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monday, sunday, err := WeekBounds(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonday, monday)
			assert.Equal(t, tt.wantSunday, sunday)
		})
	}

	t.Run("日期格式错误", func(t *testing.T) {
		_, _, err := WeekBounds("03/06/2024")
		assert.Error(t, err)
	})
}

// 对一整年内的每一天检查 WeekBounds 的性质：
// 周一不晚于输入日期、周日不早于输入日期、周日为周一之后的第六天，
// 且对返回的周一再求一次周界得到同样的结果（幂等）
func TestWeekBoundsProperties(t *testing.T) {
	day, err := time.Parse(domain.ShiftDateLayout, "2024-01-01")
	require.NoError(t, err)

	for i := 0; i < 366; i++ {
		date := day.AddDate(0, 0, i).Format(domain.ShiftDateLayout)

		monday, sunday, err := WeekBounds(date)
		require.NoError(t, err)

		assert.LessOrEqual(t, monday, date)
		assert.GreaterOrEqual(t, sunday, date)

		mondayTime, err := time.Parse(domain.ShiftDateLayout, monday)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, mondayTime.Weekday())
		assert.Equal(t, mondayTime.AddDate(0, 0, 6).Format(domain.ShiftDateLayout), sunday)

		againMonday, againSunday, err := WeekBounds(monday)
		require.NoError(t, err)
		assert.Equal(t, monday, againMonday)
		assert.Equal(t, sunday, againSunday)
	}
}

func newTestShift(id string, date string, startTime string, endTime string, published bool) *domain.Shift {
	return &domain.Shift{
		ID:          id,
		Date:        date,
		StartTime:   startTime,
		EndTime:     endTime,
		Name:        "前台值班",
		IsPublished: published,
	}
}

func TestValidateShiftPlacement(t *testing.T) {
	tests := []struct {
		name       string
		candidate  *domain.Shift
		weekShifts []*domain.Shift
		wantErr    error
	}{
		{
			name:       "空周内创建",
			candidate:  newTestShift("", "2024-06-03", "09:00:00", "17:00:00", false),
			weekShifts: []*domain.Shift{},
			wantErr:    nil,
		},
		{
			name:      "同一天时间部分重叠",
			candidate: newTestShift("", "2024-06-03", "16:00:00", "18:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", false),
			},
			wantErr: domain.ErrTimeClash,
		},
		{
			name:      "候选完全包含已有班次",
			candidate: newTestShift("", "2024-06-03", "08:00:00", "20:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", false),
			},
			wantErr: domain.ErrTimeClash,
		},
		{
			name:      "同一天时间完全错开",
			candidate: newTestShift("", "2024-06-03", "13:00:00", "17:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", false),
			},
			wantErr: nil,
		},
		{
			name:      "同一周不同天时间重叠不算冲突",
			candidate: newTestShift("", "2024-06-04", "09:00:00", "17:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", false),
			},
			wantErr: nil,
		},
		{
			name:      "周内存在已发布的班次时整周锁定",
			candidate: newTestShift("", "2024-06-05", "09:00:00", "12:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", true),
				newTestShift("b", "2024-06-04", "09:00:00", "17:00:00", false),
			},
			wantErr: domain.ErrWeekLocked,
		},
		{
			name:      "周锁定检查优先于时间冲突检查",
			candidate: newTestShift("", "2024-06-03", "16:00:00", "18:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", true),
			},
			wantErr: domain.ErrWeekLocked,
		},
		{
			name:      "更新时不和自己旧的时间段冲突",
			candidate: newTestShift("a", "2024-06-03", "10:00:00", "16:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "17:00:00", false),
			},
			wantErr: nil,
		},
		{
			name:      "更新时仍和其他班次冲突",
			candidate: newTestShift("a", "2024-06-03", "11:00:00", "14:00:00", false),
			weekShifts: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "10:00:00", false),
				newTestShift("b", "2024-06-03", "13:00:00", "17:00:00", false),
			},
			wantErr: domain.ErrTimeClash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShiftPlacement(tt.candidate, tt.weekShifts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWeekLockKey(t *testing.T) {
	// 相同的周一必须产生相同的锁键，不同的周一应当产生不同的锁键
	assert.Equal(t, WeekLockKey("2024-06-03"), WeekLockKey("2024-06-03"))
	assert.NotEqual(t, WeekLockKey("2024-06-03"), WeekLockKey("2024-06-10"))
}

func TestShiftWeeks(t *testing.T) {
	shifts := []*domain.Shift{
		newTestShift("a", "2024-06-12", "09:00:00", "12:00:00", false),
		newTestShift("b", "2024-06-03", "09:00:00", "12:00:00", false),
		newTestShift("c", "2024-06-05", "13:00:00", "17:00:00", false),
	}

	mondays, ranges, err := ShiftWeeks(shifts)
	require.NoError(t, err)

	// 同一周的班次只产生一周，且周一按升序排列
	assert.Equal(t, []string{"2024-06-03", "2024-06-10"}, mondays)
	assert.Equal(t, map[string]string{
		"2024-06-03": "2024-06-09",
		"2024-06-10": "2024-06-16",
	}, ranges)

	_, _, err = ShiftWeeks([]*domain.Shift{
		newTestShift("d", "2024/06/03", "09:00:00", "12:00:00", false),
	})
	assert.Error(t, err)
}

func TestValidateShiftRemoval(t *testing.T) {
	tests := []struct {
		name        string
		targets     []*domain.Shift
		lockedWeeks map[string]bool
		wantErr     error
	}{
		{
			name: "删除未发布班次",
			targets: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", false),
			},
			lockedWeeks: map[string]bool{"2024-06-03": false},
			wantErr:     nil,
		},
		{
			name: "删除已发布班次",
			targets: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", true),
			},
			lockedWeeks: map[string]bool{"2024-06-03": true},
			wantErr:     domain.ErrShiftLocked,
		},
		{
			name: "班次自身已发布时优先报告班次锁定而不是周锁定",
			targets: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", false),
				newTestShift("b", "2024-06-05", "13:00:00", "17:00:00", true),
			},
			lockedWeeks: map[string]bool{"2024-06-03": true},
			wantErr:     domain.ErrShiftLocked,
		},
		{
			name: "删除已锁定周内的未发布班次",
			targets: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", false),
			},
			lockedWeeks: map[string]bool{"2024-06-03": true},
			wantErr:     domain.ErrWeekLocked,
		},
		{
			name: "发布某周后下一周的班次仍可删除",
			targets: []*domain.Shift{
				newTestShift("b", "2024-06-10", "09:00:00", "12:00:00", false),
			},
			lockedWeeks: map[string]bool{
				"2024-06-03": true,
				"2024-06-10": false,
			},
			wantErr: nil,
		},
		{
			name: "批量删除中任一班次所在周被锁定则整批拒绝",
			targets: []*domain.Shift{
				newTestShift("a", "2024-06-03", "09:00:00", "12:00:00", false),
				newTestShift("b", "2024-06-10", "09:00:00", "12:00:00", false),
			},
			lockedWeeks: map[string]bool{
				"2024-06-03": true,
				"2024-06-10": false,
			},
			wantErr: domain.ErrWeekLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShiftRemoval(tt.targets, tt.lockedWeeks)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
