package seed

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/utils"
)

// SeedRandomUsers 插入 n 个随机用户，所有用户使用同一个初始密码
func SeedRandomUsers(r *repository.Repository, n int, password string, emailDomain string) {
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("生成随机用户失败", "error", err)
			return
		}

		if err := r.CreateUser(user); err != nil {
			// 随机生成的用户名可能撞上已有用户，跳过即可
			slog.Error("插入随机用户失败", "username", user.Username, "error", err)
			continue
		}

		slog.Info("已插入随机用户", "username", user.Username, "fullName", user.FullName, "role", user.Role)
	}
}

// SeedRandomShifts 在最近几周内随机插入 n 个班次，
// 和已有班次冲突或者落在已发布周内的会被拒绝并跳过
func SeedRandomShifts(r *repository.Repository, n int) {
	inserted := 0

	for i := 0; i < n; i++ {
		shift := utils.GenerateRandomShift(14)

		if err := r.CreateShift(shift); err != nil {
			switch {
			case errors.Is(err, domain.ErrTimeClash), errors.Is(err, domain.ErrWeekLocked):
				slog.Info("随机班次被拒绝，跳过", "date", shift.Date, "startTime", shift.StartTime, "reason", err)
			default:
				slog.Error("插入随机班次失败", "error", err)
				return
			}
			continue
		}

		inserted++
	}

	slog.Info("随机班次插入完成", "inserted", inserted, "total", n)
}

// ImportShiftsFromCSV 从 CSV 文件导入班次，表头之后每行的格式为：日期,开始时间,结束时间,名称
func ImportShiftsFromCSV(r *repository.Repository, path string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 读取并丢弃表头
	if _, err := reader.Read(); err != nil {
		slog.Error("读取表头失败", "error", err)
		return
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("读取记录失败", "line", line, "error", err)
			return
		}
		line++

		if len(record) < 4 {
			slog.Error("记录列数不足", "line", line)
			continue
		}

		if err := utils.ValidateShiftTime(record[0], record[1], record[2]); err != nil {
			slog.Error("记录格式错误，跳过", "line", line, "error", err)
			continue
		}

		shift := &domain.Shift{
			Date:      record[0],
			StartTime: record[1],
			EndTime:   record[2],
			Name:      record[3],
		}

		if err := r.CreateShift(shift); err != nil {
			switch {
			case errors.Is(err, domain.ErrTimeClash), errors.Is(err, domain.ErrWeekLocked):
				slog.Info("班次被拒绝，跳过", "line", line, "date", shift.Date, "reason", err)
			default:
				slog.Error("插入班次失败", "line", line, "error", err)
				return
			}
			continue
		}

		slog.Info("已导入班次", "line", line, "date", shift.Date, "name", shift.Name)
	}
}

// PublishWeek 发布指定日期所在周（周一到周日）的全部班次
func PublishWeek(r *repository.Repository, date string) {
	monday, sunday, err := utils.WeekBounds(date)
	if err != nil {
		slog.Error("日期格式错误", "date", date, "error", err)
		return
	}

	shifts, err := r.PublishShifts(monday, sunday)
	if err != nil {
		slog.Error("发布班次失败", "error", err)
		return
	}

	slog.Info("发布完成", "monday", monday, "sunday", sunday, "count", len(shifts))
}
