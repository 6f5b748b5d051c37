package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/utils"
)

// 允许用于排序的字段和对应的列名，防止拼接出恶意的 ORDER BY
var shiftOrderColumns = map[string]string{
	"date":      "date",
	"startTime": "start_time",
	"endTime":   "end_time",
	"name":      "name",
	"createdAt": "created_at",
}

// 前端班次列表的默认排序
var defaultShiftOrders = []domain.ShiftOrder{
	{Field: "date", Direction: "DESC"},
	{Field: "startTime", Direction: "ASC"},
}

func buildShiftOrderClause(orders []domain.ShiftOrder) (string, error) {
	if len(orders) == 0 {
		orders = defaultShiftOrders
	}

	parts := make([]string, 0, len(orders))
	for _, order := range orders {
		column, ok := shiftOrderColumns[order.Field]
		if !ok {
			return "", fmt.Errorf("不支持按 %s 排序", order.Field)
		}
		direction := strings.ToUpper(order.Direction)
		if direction != "ASC" && direction != "DESC" {
			return "", fmt.Errorf("排序方向 %s 无效", order.Direction)
		}
		parts = append(parts, column+" "+direction)
	}

	return strings.Join(parts, ", "), nil
}

const shiftColumns = `id, date::text, start_time::text, end_time::text, name, is_published, created_at, version`

func scanShift(row interface{ Scan(...any) error }) (*domain.Shift, error) {
	var shift domain.Shift
	dst := []any{
		&shift.ID,
		&shift.Date,
		&shift.StartTime,
		&shift.EndTime,
		&shift.Name,
		&shift.IsPublished,
		&shift.CreatedAt,
		&shift.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return &shift, nil
}

// GetShiftsByDateRange 返回日期落在 [startDate, endDate] 内的所有班次。
// startDate 和 endDate 均为空时返回全部班次
func (r *Repository) GetShiftsByDateRange(startDate string, endDate string, orders []domain.ShiftOrder) ([]*domain.Shift, error) {
	if startDate != "" && endDate != "" && startDate > endDate {
		return nil, domain.ErrInvalidRange
	}

	orderClause, err := buildShiftOrderClause(orders)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	params := []any{}
	if startDate != "" && endDate != "" {
		query += ` WHERE date BETWEEN $1 AND $2`
		params = append(params, startDate, endDate)
	}
	query += ` ORDER BY ` + orderClause

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// GetShift 按字段精确匹配返回第一个符合条件的班次
func (r *Repository) GetShift(filter *domain.ShiftFilter) (*domain.Shift, error) {
	conds := []string{}
	params := []any{}

	appendCond := func(column string, value any) {
		params = append(params, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(params)))
	}

	if filter.ID != nil {
		appendCond("id", *filter.ID)
	}
	if filter.Date != nil {
		appendCond("date", *filter.Date)
	}
	if filter.StartTime != nil {
		appendCond("start_time", *filter.StartTime)
	}
	if filter.EndTime != nil {
		appendCond("end_time", *filter.EndTime)
	}
	if filter.IsPublished != nil {
		appendCond("is_published", *filter.IsPublished)
	}

	if len(conds) == 0 {
		return nil, errors.New("至少需要一个查询条件")
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY date, start_time LIMIT 1`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	shift, err := scanShift(r.dbpool.QueryRowContext(ctx, query, params...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShiftNotFound
		}
		return nil, err
	}

	return shift, nil
}

func (r *Repository) GetShiftByID(id string) (*domain.Shift, error) {
	return r.GetShift(&domain.ShiftFilter{ID: &id})
}

// lockWeeks 在事务内依次获取各周的咨询锁，锁键升序排列以避免死锁
func lockWeeks(ctx context.Context, tx *sql.Tx, mondays []string) error {
	keys := make([]int64, 0, len(mondays))
	for _, monday := range mondays {
		keys = append(keys, utils.WeekLockKey(monday))
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return err
		}
	}
	return nil
}

func fetchWeekShifts(ctx context.Context, tx *sql.Tx, monday string, sunday string) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE date BETWEEN $1 AND $2`

	rows, err := tx.QueryContext(ctx, query, monday, sunday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// CreateShift 在通过周锁定和时间冲突检查后插入班次。
// 检查和插入在同一个事务中进行，并用该周的咨询锁串行化同一周内的写操作，
// 避免两个并发创建同时通过检查后都写入
func (r *Repository) CreateShift(shift *domain.Shift) error {
	monday, sunday, err := utils.WeekBounds(shift.Date)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockWeeks(ctx, tx, []string{monday}); err != nil {
		return err
	}

	weekShifts, err := fetchWeekShifts(ctx, tx, monday, sunday)
	if err != nil {
		return err
	}

	if err := utils.ValidateShiftPlacement(shift, weekShifts); err != nil {
		return err
	}

	shift.ID = uuid.New().String()
	shift.IsPublished = false

	query := `
		INSERT INTO shifts (id, date, start_time, end_time, name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, version
	`
	params := []any{shift.ID, shift.Date, shift.StartTime, shift.EndTime, shift.Name}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// UpdateShiftByID 按 patch 更新班次。检查时使用 patch 覆盖后的有效字段：
// 班次自身已发布时直接拒绝；原有周和目标周中只要有已发布的班次也拒绝；
// 时间冲突检查排除被更新的班次自身
func (r *Repository) UpdateShiftByID(id string, patch *domain.ShiftPatch) (*domain.Shift, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanShift(tx.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShiftNotFound
		}
		return nil, err
	}

	// 已发布的班次本身不可变更，即使周锁定检查被绕过也要拒绝
	if current.IsPublished {
		return nil, domain.ErrShiftLocked
	}

	candidate := *current
	if patch.Date != nil {
		candidate.Date = *patch.Date
	}
	if patch.StartTime != nil {
		candidate.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		candidate.EndTime = *patch.EndTime
	}
	if patch.Name != nil {
		candidate.Name = *patch.Name
	}

	// patch 可能只含起止时间之一，覆盖后需要重新检查先后关系
	if candidate.StartTime >= candidate.EndTime {
		return nil, domain.ErrInvalidShiftTime
	}

	oldMonday, oldSunday, err := utils.WeekBounds(current.Date)
	if err != nil {
		return nil, err
	}
	newMonday, newSunday, err := utils.WeekBounds(candidate.Date)
	if err != nil {
		return nil, err
	}

	if err := lockWeeks(ctx, tx, []string{oldMonday, newMonday}); err != nil {
		return nil, err
	}

	// 班次被移出某周同样属于对该周的变更，原有周被锁定时也要拒绝
	if oldMonday != newMonday {
		oldWeekShifts, err := fetchWeekShifts(ctx, tx, oldMonday, oldSunday)
		if err != nil {
			return nil, err
		}
		for _, shift := range oldWeekShifts {
			if shift.IsPublished {
				return nil, domain.ErrWeekLocked
			}
		}
	}

	newWeekShifts, err := fetchWeekShifts(ctx, tx, newMonday, newSunday)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateShiftPlacement(&candidate, newWeekShifts); err != nil {
		return nil, err
	}

	query := `
		UPDATE shifts
		SET
			date = $1,
			start_time = $2,
			end_time = $3,
			name = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`
	params := []any{candidate.Date, candidate.StartTime, candidate.EndTime, candidate.Name, id, current.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&candidate.Version); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &candidate, nil
}

// dedupeShiftIDs 返回去重并排序后的班次 id，不修改入参
func dedupeShiftIDs(ids []string) []string {
	return slices.Compact(slices.Sorted(slices.Values(ids)))
}

// DeleteShiftsByID 删除一个或多个班次，要么全部删除要么全部不删。
// 任一目标班次已发布，或其所在周存在已发布的班次时都会拒绝
func (r *Repository) DeleteShiftsByID(ids []string) (int64, error) {
	// IN 查询会对重复的 id 去重，先去重保证后面的数量比对正确
	ids = dedupeShiftIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	placeholders := make([]string, 0, len(ids))
	params := make([]any, 0, len(ids))
	for _, id := range ids {
		params = append(params, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(params)))
	}
	inClause := strings.Join(placeholders, ", ")

	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id IN (` + inClause + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}

	targets := []*domain.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		targets = append(targets, shift)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(targets) != len(ids) {
		return 0, domain.ErrShiftNotFound
	}

	mondays, weekRanges, err := utils.ShiftWeeks(targets)
	if err != nil {
		return 0, err
	}

	if err := lockWeeks(ctx, tx, mondays); err != nil {
		return 0, err
	}

	// 周锁定检查：目标班次所在的每一周都不能存在已发布的班次
	lockedWeeks := map[string]bool{}
	for _, monday := range mondays {
		locked := false
		lockQuery := `SELECT EXISTS (SELECT 1 FROM shifts WHERE date BETWEEN $1 AND $2 AND is_published)`
		if err := tx.QueryRowContext(ctx, lockQuery, monday, weekRanges[monday]).Scan(&locked); err != nil {
			return 0, err
		}
		lockedWeeks[monday] = locked
	}

	if err := utils.ValidateShiftRemoval(targets, lockedWeeks); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE id IN (`+inClause+`)`, params...)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return deleted, nil
}

// PublishShifts 将日期落在 [startDate, endDate] 内的所有班次标记为已发布，并返回更新后的班次。
// 发布是唯一会翻转 is_published 的操作，本身不做任何锁定检查，也没有对应的撤销操作
func (r *Repository) PublishShifts(startDate string, endDate string) ([]*domain.Shift, error) {
	if startDate > endDate {
		return nil, domain.ErrInvalidRange
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE shifts
		SET
			is_published = TRUE,
			version = version + 1
		WHERE date BETWEEN $1 AND $2 AND is_published = FALSE
	`
	if _, err := r.dbpool.ExecContext(ctx, query, startDate, endDate); err != nil {
		return nil, err
	}

	return r.GetShiftsByDateRange(startDate, endDate, nil)
}
