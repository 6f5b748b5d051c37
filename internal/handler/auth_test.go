package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/shift-scheduler/backend/internal/config"
)

func TestOTPTTL(t *testing.T) {
	cfg := &config.Config{}
	cfg.OTP.Expiration = 900 // 配置中的过期时间以秒为单位

	h := &Handler{config: cfg}

	assert.Equal(t, 15*time.Minute, h.otpTTL())
}
