package utils

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
)

// ValidateShiftTime 检查班次的日期和起止时间格式是否正确，以及开始时间是否早于结束时间
func ValidateShiftTime(date string, startTime string, endTime string) error {
	if _, err := time.Parse(domain.ShiftDateLayout, date); err != nil {
		return fmt.Errorf("班次日期格式错误，应为 %s", domain.ShiftDateLayout)
	}

	start, err := time.Parse(domain.ShiftTimeLayout, startTime)
	if err != nil {
		return fmt.Errorf("班次开始时间格式错误，应为 %s", domain.ShiftTimeLayout)
	}
	end, err := time.Parse(domain.ShiftTimeLayout, endTime)
	if err != nil {
		return fmt.Errorf("班次结束时间格式错误，应为 %s", domain.ShiftTimeLayout)
	}

	if !start.Before(end) {
		return errors.New("班次的开始时间必须早于结束时间")
	}

	return nil
}

// ShiftOverlaps 判断同一天内已有班次 [aStart, aEnd) 和候选班次 [bStart, bEnd) 的时间是否冲突。
// 时间为固定的 15:04:05 格式字符串，可以直接按字典序比较。
// 冲突的情形有三类：候选的开始时间落在已有班次内，候选的结束时间落在已有班次内，
// 或候选完全包含已有班次。已有班次完全包含候选的情形已被第一类覆盖
func ShiftOverlaps(aStart string, aEnd string, bStart string, bEnd string) bool {
	switch {
	case aStart <= bStart && bStart < aEnd:
		return true
	case aStart < bEnd && bEnd <= aEnd:
		return true
	case bStart <= aStart && bEnd >= aEnd:
		return true
	default:
		return false
	}
}

// WeekBounds 返回日期所在周的周一和周日（周一为一周的第一天，周日为第七天），不会修改入参
func WeekBounds(date string) (string, string, error) {
	d, err := time.Parse(domain.ShiftDateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("日期格式错误，应为 %s", domain.ShiftDateLayout)
	}

	// time.Weekday 中周日为 0，需要换算成周一为 1 到周日为 7
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	monday := d.AddDate(0, 0, -(weekday - 1))
	sunday := monday.AddDate(0, 0, 6)

	return monday.Format(domain.ShiftDateLayout), sunday.Format(domain.ShiftDateLayout), nil
}

// ValidateShiftPlacement 对候选班次依次做周锁定检查和时间冲突检查。
// weekShifts 应为候选班次所在周（周一到周日）内的全部班次。
// 只要周内存在任意一个已发布的班次，整周即被锁定，不论其他班次是否已发布；
// 更新场景下候选班次自身不参与冲突检查（班次不会和自己冲突），
// 但它的已发布状态仍然参与周锁定判断
func ValidateShiftPlacement(candidate *domain.Shift, weekShifts []*domain.Shift) error {
	for _, shift := range weekShifts {
		if shift.IsPublished {
			return domain.ErrWeekLocked
		}
	}

	for _, shift := range weekShifts {
		if shift.ID == candidate.ID || shift.Date != candidate.Date {
			continue
		}
		if ShiftOverlaps(shift.StartTime, shift.EndTime, candidate.StartTime, candidate.EndTime) {
			return domain.ErrTimeClash
		}
	}

	return nil
}

// ShiftWeeks 返回一批班次覆盖的所有周。mondays 为升序去重后的各周周一，
// ranges 为周一到对应周日的映射
func ShiftWeeks(shifts []*domain.Shift) ([]string, map[string]string, error) {
	mondays := []string{}
	ranges := map[string]string{}
	for _, shift := range shifts {
		monday, sunday, err := WeekBounds(shift.Date)
		if err != nil {
			return nil, nil, err
		}
		if _, exists := ranges[monday]; !exists {
			mondays = append(mondays, monday)
			ranges[monday] = sunday
		}
	}
	slices.Sort(mondays)

	return mondays, ranges, nil
}

// ValidateShiftRemoval 检查一批班次能否删除，任意一个班次不满足条件则整批拒绝。
// 先检查班次自身是否已发布，再检查各自所在周是否被锁定，
// 因此删除已发布班次的拒绝理由始终是班次自身已发布，而不是它所在的周。
// lockedWeeks 的键为周一的日期，值表示该周内是否存在已发布的班次
func ValidateShiftRemoval(targets []*domain.Shift, lockedWeeks map[string]bool) error {
	for _, shift := range targets {
		if shift.IsPublished {
			return domain.ErrShiftLocked
		}
	}

	for _, shift := range targets {
		monday, _, err := WeekBounds(shift.Date)
		if err != nil {
			return err
		}
		if lockedWeeks[monday] {
			return domain.ErrWeekLocked
		}
	}

	return nil
}

// WeekLockKey 根据周一的日期生成 pg_advisory_xact_lock 使用的锁键，
// 同一周内的写操作因此会被串行化，避免两个并发创建同时通过冲突检查
func WeekLockKey(monday string) int64 {
	h := fnv.New64a()
	h.Write([]byte("shift_week_" + monday))
	return int64(h.Sum64())
}
