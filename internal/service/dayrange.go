package service

import (
	"math"
	"time"
)

const dayParamFormat = "2006-01-02"

// DayRange 返回 t 所在自然日的起止时刻（本地时区）。
// start 为当日零点，end 为次日零点前的最后一个瞬间
func DayRange(t time.Time) (time.Time, time.Time) {
	start := DayKey(t)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// DayKey 把任意时刻归一化为当日零点，作为按天分组的键。
// 同一自然日内的任意时刻得到同一个键
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDayParam 解析 yyyy-MM-dd 或 RFC3339 格式的日期参数。
// 空值或无法解析时回退为当前时间；需要严格校验的调用方应自行预检
func ParseDayParam(value string) time.Time {
	if value == "" {
		return time.Now()
	}

	if parsed, err := time.ParseInLocation(dayParamFormat, value, time.Local); err == nil {
		return parsed
	}

	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.Local()
	}

	return time.Now()
}

// YearRange 返回指定年份的起止时刻（1月1日零点至12月31日最后一瞬）。
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	return start, end
}

// DaysInYear 返回指定年份的天数，闰年为 366。
func DaysInYear(year int) int {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(start.AddDate(1, 0, 0).Sub(start).Hours() / 24)
}

// DayIndex 返回 day 相对 yearStart 的天序号，1月1日为 0。
// 通过四舍五入消除夏令时造成的非 24 小时日
func DayIndex(yearStart, day time.Time) int {
	return int(math.Round(DayKey(day).Sub(DayKey(yearStart)).Hours() / 24))
}
