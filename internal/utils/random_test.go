package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomShift(t *testing.T) {
	// 随机班次可能和已有班次冲突，但自身必须是格式合法且起止有序的
	for i := 0; i < 200; i++ {
		shift := GenerateRandomShift(14)
		assert.NoError(t, ValidateShiftTime(shift.Date, shift.StartTime, shift.EndTime))
		assert.NotEmpty(t, shift.Name)
		assert.False(t, shift.IsPublished)
	}
}

func TestGenerateRandomPassword(t *testing.T) {
	password := GenerateRandomPassword(12)
	assert.Len(t, password, 12)
}

func TestGenerateRandomOTP(t *testing.T) {
	otp := GenerateRandomOTP()
	assert.Len(t, otp, 6)
}
