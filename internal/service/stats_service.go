package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sundo/internal/db"
	"gorm.io/gorm"
)

// ErrInvalidSnapshot 在快照输入缺少领域名时返回
var ErrInvalidSnapshot = errors.New("invalid area snapshot input")

// StatsService 负责每日进度快照的合并写入与读取投影
// 每个用户每天至多一条 DayStat；同一领域在当天的多次上报按领域覆盖合并
type StatsService struct {
	db *gorm.DB
}

// AreaProgressInput 定义单次领域进度上报。
// At 为零值时取当前时间；Achieved 始终由 Completed/Total 重新计算，不信任调用方
type AreaProgressInput struct {
	UserID    uint
	Area      string
	Total     int
	Completed int
	At        time.Time
}

// NewStatsService 构造 StatsService
func NewStatsService(gdb *gorm.DB) *StatsService {
	return &StatsService{db: gdb}
}

// RecordAreaProgress 将一次领域进度快照合并进当日聚合记录。
// 当日记录不存在则创建；已存在同名领域则原地覆盖，否则追加新条目。
// 同一 (用户, 领域, 日期) 上报 N 次后只保留最后一次的值
func (s *StatsService) RecordAreaProgress(input AreaProgressInput) (*db.DayStat, error) {
	area := strings.TrimSpace(input.Area)
	if area == "" {
		return nil, ErrInvalidSnapshot
	}

	at := input.At
	if at.IsZero() {
		at = time.Now()
	}
	day := DayKey(at)

	var stat db.DayStat

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Preload("Areas").
			Where("user_id = ? AND stat_date = ?", input.UserID, day).
			First(&stat)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			stat = db.DayStat{
				UserID:   input.UserID,
				StatDate: day,
				Areas: []db.AreaSnapshot{{
					Area:      area,
					Total:     input.Total,
					Completed: input.Completed,
					Achieved:  achievedPercent(input.Total, input.Completed),
				}},
			}
			return tx.Create(&stat).Error
		}
		if result.Error != nil {
			return result.Error
		}

		for i := range stat.Areas {
			if stat.Areas[i].Area != area {
				continue
			}
			// 覆盖合并，不追加重复条目
			stat.Areas[i].Total = input.Total
			stat.Areas[i].Completed = input.Completed
			stat.Areas[i].Achieved = achievedPercent(input.Total, input.Completed)
			if err := tx.Save(&stat.Areas[i]).Error; err != nil {
				return err
			}
			return tx.Model(&db.DayStat{}).Where("id = ?", stat.ID).
				Update("updated_at", time.Now()).Error
		}

		snapshot := db.AreaSnapshot{
			DayStatID: stat.ID,
			Area:      area,
			Total:     input.Total,
			Completed: input.Completed,
			Achieved:  achievedPercent(input.Total, input.Completed),
		}
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}
		stat.Areas = append(stat.Areas, snapshot)
		return tx.Model(&db.DayStat{}).Where("id = ?", stat.ID).
			Update("updated_at", time.Now()).Error
	}); err != nil {
		return nil, fmt.Errorf("record area progress: %w", err)
	}

	return &stat, nil
}

// Daily 返回最近 count 天的进度记录（按日期倒序），经过投影收敛后输出
func (s *StatsService) Daily(userID uint, count int) ([]db.DayStat, error) {
	if count <= 0 {
		count = 7
	}

	var stats []db.DayStat
	if err := s.db.Preload("Areas").
		Where("user_id = ?", userID).
		Order("stat_date DESC").
		Limit(count).
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list day stats: %w", err)
	}

	return ProjectDayStats(stats), nil
}

// ProjectDayStats 对读出的每日记录做防御性投影：
// 同一记录内的重复领域收敛为单条（Total/Completed 各取最大值），
// 无论是否重复，Achieved 一律由计数重新推导，不信任存储值。
// 输出与输入记录一一对应，顺序不变；投影满足幂等
func ProjectDayStats(stats []db.DayStat) []db.DayStat {
	projected := make([]db.DayStat, 0, len(stats))

	for _, stat := range stats {
		merged := make(map[string]db.AreaSnapshot, len(stat.Areas))
		order := make([]string, 0, len(stat.Areas))

		for _, snapshot := range stat.Areas {
			existing, ok := merged[snapshot.Area]
			if !ok {
				merged[snapshot.Area] = snapshot
				order = append(order, snapshot.Area)
				continue
			}

			// 历史竞争写入可能留下重复领域，取两者计数的最大值
			if snapshot.Total > existing.Total {
				existing.Total = snapshot.Total
			}
			if snapshot.Completed > existing.Completed {
				existing.Completed = snapshot.Completed
			}
			merged[snapshot.Area] = existing
		}

		collapsed := make([]db.AreaSnapshot, 0, len(order))
		for _, area := range order {
			snapshot := merged[area]
			snapshot.Achieved = achievedPercent(snapshot.Total, snapshot.Completed)
			collapsed = append(collapsed, snapshot)
		}

		stat.Areas = collapsed
		projected = append(projected, stat)
	}

	return projected
}

// achievedPercent 由原始计数推导完成度百分比，total 为 0 时返回 0
func achievedPercent(total, completed int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
