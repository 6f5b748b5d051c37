package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/utils"
)

// 允许客户端排序的字段
var allowedShiftOrderFields = map[string]bool{
	"date":      true,
	"startTime": true,
	"endTime":   true,
	"name":      true,
	"createdAt": true,
}

// parseShiftOrders 从原始查询串中按出现顺序解析 order[field]=ASC|DESC 形式的排序参数。
// 不能用 url.Values 来解析，因为多个排序条件之间有先后关系，而 map 的遍历顺序是随机的
func parseShiftOrders(rawQuery string) ([]domain.ShiftOrder, error) {
	orders := []domain.ShiftOrder{}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, errors.New("查询参数格式错误")
		}
		if !strings.HasPrefix(key, "order[") || !strings.HasSuffix(key, "]") {
			continue
		}
		field := key[len("order[") : len(key)-1]

		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, errors.New("查询参数格式错误")
		}

		if !allowedShiftOrderFields[field] {
			return nil, fmt.Errorf("不支持按 %s 排序", field)
		}
		direction := strings.ToUpper(value)
		if direction != "ASC" && direction != "DESC" {
			return nil, fmt.Errorf("排序方向 %s 无效", value)
		}

		orders = append(orders, domain.ShiftOrder{Field: field, Direction: direction})
	}

	return orders, nil
}

// parseShiftDateRange 解析 where=<开始日期>&where=<结束日期> 形式的日期范围参数。
// required 为 false 时允许两个参数都缺省，表示不限制日期范围
func parseShiftDateRange(query url.Values, required bool) (string, string, error) {
	wheres := query["where"]

	switch len(wheres) {
	case 0:
		if required {
			return "", "", errors.New("需要提供开始日期和结束日期")
		}
		return "", "", nil
	case 2:
		for _, where := range wheres {
			if _, err := time.Parse(domain.ShiftDateLayout, where); err != nil {
				return "", "", fmt.Errorf("日期 %s 格式错误，应为 %s", where, domain.ShiftDateLayout)
			}
		}
		return wheres[0], wheres[1], nil
	default:
		return "", "", errors.New("需要同时提供开始日期和结束日期")
	}
}

func (h *Handler) GetShifts(w http.ResponseWriter, r *http.Request) {
	orders, err := parseShiftOrders(r.URL.RawQuery)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	startDate, endDate, err := parseShiftDateRange(r.URL.Query(), false)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	shifts, err := h.repository.GetShiftsByDateRange(startDate, endDate, orders)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRange):
			h.errorResponse(w, r, "查询的开始日期不能晚于结束日期")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	h.successResponse(w, r, "获取班次成功", shift)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date      string `json:"date" validate:"required"`
		StartTime string `json:"startTime" validate:"required"`
		EndTime   string `json:"endTime" validate:"required"`
		Name      string `json:"name" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := utils.ValidateShiftTime(req.Date, req.StartTime, req.EndTime); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := &domain.Shift{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Name:      req.Name,
	}

	if err := h.repository.CreateShift(shift); err != nil {
		switch {
		case errors.Is(err, domain.ErrWeekLocked):
			h.errorResponse(w, r, "该班次所在周已有已发布的班次，禁止创建")
		case errors.Is(err, domain.ErrTimeClash):
			h.errorResponse(w, r, "班次时间与当天已有的班次冲突")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建班次成功", shift)
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	var req struct {
		Date      *string `json:"date"`
		StartTime *string `json:"startTime"`
		EndTime   *string `json:"endTime"`
		Name      *string `json:"name"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 用 patch 覆盖现有字段后整体校验一遍格式和起止先后关系
	effective := *shift
	if req.Date != nil {
		effective.Date = *req.Date
	}
	if req.StartTime != nil {
		effective.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		effective.EndTime = *req.EndTime
	}
	if err := utils.ValidateShiftTime(effective.Date, effective.StartTime, effective.EndTime); err != nil {
		h.badRequest(w, r, err)
		return
	}

	patch := &domain.ShiftPatch{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Name:      req.Name,
	}

	updated, err := h.repository.UpdateShiftByID(shift.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrShiftNotFound):
			h.errorResponse(w, r, "班次不存在")
		case errors.Is(err, domain.ErrShiftLocked):
			h.errorResponse(w, r, "该班次已发布，禁止修改")
		case errors.Is(err, domain.ErrWeekLocked):
			h.errorResponse(w, r, "该班次所在周已有已发布的班次，禁止修改")
		case errors.Is(err, domain.ErrTimeClash):
			h.errorResponse(w, r, "班次时间与当天已有的班次冲突")
		case errors.Is(err, domain.ErrInvalidShiftTime):
			h.errorResponse(w, r, "班次的开始时间必须早于结束时间")
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新班次成功", updated)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	deleted, err := h.repository.DeleteShiftsByID([]string{shift.ID})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrShiftNotFound):
			h.errorResponse(w, r, "班次不存在")
		case errors.Is(err, domain.ErrShiftLocked):
			h.errorResponse(w, r, "该班次已发布，禁止删除")
		case errors.Is(err, domain.ErrWeekLocked):
			h.errorResponse(w, r, "该班次所在周已有已发布的班次，禁止删除")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除班次成功", map[string]int64{"deleted": deleted})
}

func (h *Handler) PublishShifts(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseShiftDateRange(r.URL.Query(), true)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	shifts, err := h.repository.PublishShifts(startDate, endDate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRange):
			h.errorResponse(w, r, "发布的开始日期不能晚于结束日期")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "发布班次成功", shifts)
}
