package utils

import (
	"time"
)

// Clock 可注入的时间源，测试中用固定时间替换 time.Now
type Clock func() time.Time

// Now 返回 UTC 当前时间，文章时间统一按 UTC 存储
func Now() time.Time {
	return time.Now().UTC()
}

// OrNow 为空时使用默认时间源
func (c Clock) OrNow() Clock {
	if c == nil {
		return Now
	}
	return c
}

// DaysAgo 返回 now 往前 days 天的时间点 (按 24 小时计，不对齐到零点)
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
