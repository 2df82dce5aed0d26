package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// generateNo 生成带时间与随机后缀的人类可读编号，如 ORD20260823153005-9F2A1C3E
func generateNo(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s%s-%s", prefix, at.Format("20060102150405"), suffix)
}

// GenerateOrderNo 生成订单编号
func GenerateOrderNo(at time.Time) string {
	return generateNo("ORD", at)
}

// GenerateSessionNo 生成会话编号
func GenerateSessionNo(at time.Time) string {
	return generateNo("TAB", at)
}
