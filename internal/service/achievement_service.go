package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sundo/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrAchievementNotFound 在指定日期没有成就日志（或日期在未来）时返回
	ErrAchievementNotFound = errors.New("achievement log not found")
	// ErrEntryNotFound 在成就条目不存在或不属于该用户时返回
	ErrEntryNotFound = errors.New("achievement entry not found")
	// ErrEmptyAchievement 在成就文本为空时返回
	ErrEmptyAchievement = errors.New("achievement text is required")
)

// AchievementService 负责每日成就日志与年度热力图
// 当天的日志在首次访问时惰性创建；历史日期只读，未来日期视为不存在
type AchievementService struct {
	db *gorm.DB
}

// NewAchievementService 构造 AchievementService
func NewAchievementService(gdb *gorm.DB) *AchievementService {
	return &AchievementService{db: gdb}
}

// ForDay 返回用户指定日期的成就日志。
// 仅当日期为今天且日志不存在时才创建空日志；未来日期返回 ErrAchievementNotFound
func (s *AchievementService) ForDay(userID uint, at time.Time) (*db.AchievementLog, error) {
	day := DayKey(at)
	today := DayKey(time.Now())

	if day.After(today) {
		return nil, ErrAchievementNotFound
	}

	var log db.AchievementLog
	result := s.db.Preload("Entries", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Where("user_id = ? AND log_date = ?", userID, day).First(&log)
	if result.Error == nil {
		return &log, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find achievement log: %w", result.Error)
	}

	if !day.Equal(today) {
		return nil, ErrAchievementNotFound
	}

	log = db.AchievementLog{UserID: userID, LogDate: day}
	if createErr := s.db.Create(&log).Error; createErr != nil {
		// 并发首访可能已经建好当天的日志，重读一次
		if reloadErr := s.db.Preload("Entries").
			Where("user_id = ? AND log_date = ?", userID, day).
			First(&log).Error; reloadErr != nil {
			return nil, fmt.Errorf("create achievement log: %w", createErr)
		}
	}

	return &log, nil
}

// Append 向指定日期的日志追加一条成就，返回新条目
func (s *AchievementService) Append(userID uint, at time.Time, text string) (*db.AchievementEntry, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyAchievement
	}

	log, err := s.ForDay(userID, at)
	if err != nil {
		return nil, err
	}

	entry := db.AchievementEntry{
		ID:    uuid.NewString(),
		LogID: log.ID,
		Text:  trimmed,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("append achievement: %w", err)
	}

	return &entry, nil
}

// DeleteEntry 按条目 ID 删除成就，校验归属用户
func (s *AchievementService) DeleteEntry(userID uint, entryID string) error {
	result := s.db.Where(
		"id = ? AND log_id IN (?)",
		entryID,
		s.db.Model(&db.AchievementLog{}).Select("id").Where("user_id = ?", userID),
	).Delete(&db.AchievementEntry{})

	if result.Error != nil {
		return fmt.Errorf("delete achievement entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// UpdateNote 整体替换指定日期日志的备注
func (s *AchievementService) UpdateNote(userID uint, at time.Time, note string) (*db.AchievementLog, error) {
	log, err := s.ForDay(userID, at)
	if err != nil {
		return nil, err
	}

	log.Note = note
	if err := s.db.Model(&db.AchievementLog{}).Where("id = ?", log.ID).
		Update("note", note).Error; err != nil {
		return nil, fmt.Errorf("update achievement note: %w", err)
	}

	return log, nil
}

// MergeMCPNote 把来自 MCP 接口的备注追加到已有备注后，带围栏标记
func MergeMCPNote(existing, incoming string) string {
	trimmed := strings.TrimSpace(incoming)
	if trimmed == "" {
		return existing
	}

	fenced := fmt.Sprintf("[MCP]\n----\n%s\n----", trimmed)
	if existing == "" {
		return fenced
	}
	return existing + "\n\n" + fenced
}

// YearlyHistogram 构建指定年份的逐日成就计数稠密数组。
// 数组长度等于该年天数，下标 0 对应 1 月 1 日；无活动的日期（含未来）保持 0
func (s *AchievementService) YearlyHistogram(userID uint, year int) ([]int, error) {
	if year <= 0 {
		year = time.Now().Year()
	}

	yearStart, yearEnd := YearRange(year)
	counts := make([]int, DaysInYear(year))

	// log_date 本身就是归一化后的日键，直接按列分组，
	// 避免 SQL 日期函数把时间归一到 UTC 造成偏移
	var rows []struct {
		Day   time.Time
		Total int
	}
	if err := s.db.Model(&db.AchievementEntry{}).
		Select("achievement_logs.log_date AS day, COUNT(achievement_entries.id) AS total").
		Joins("JOIN achievement_logs ON achievement_logs.id = achievement_entries.log_id").
		Where("achievement_logs.user_id = ?", userID).
		Where("achievement_logs.log_date BETWEEN ? AND ?", yearStart, yearEnd).
		Group("achievement_logs.log_date").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate achievements by day: %w", err)
	}

	for _, row := range rows {
		index := DayIndex(yearStart, row.Day)
		if index >= 0 && index < len(counts) {
			counts[index] = row.Total
		}
	}

	return counts, nil
}
