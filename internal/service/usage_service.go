package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sundo/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidUsage 在用量记录缺少必填维度时返回
var ErrInvalidUsage = errors.New("invalid usage input")

// UsageService 按 (密钥, 用户, 资源, 自然日) 维度累计 API 调用量
// 计数通过单条 upsert 语句在存储层原子自增，并发调用不会丢失更新
type UsageService struct {
	db *gorm.DB
}

// UsageInput 定义单次调用的记账维度，At 为零值时取当前时间
type UsageInput struct {
	ApiKeyID uint
	UserID   uint
	Resource string
	At       time.Time
}

// NewUsageService 构造 UsageService
func NewUsageService(gdb *gorm.DB) *UsageService {
	return &UsageService{db: gdb}
}

// Track 为对应的日计数器加一，计数器不存在时从 0 创建。
// 自增发生在数据库内部（count = count + 1），不做应用层读改写
func (s *UsageService) Track(input UsageInput) error {
	if input.ApiKeyID == 0 || input.UserID == 0 || input.Resource == "" {
		return ErrInvalidUsage
	}

	at := input.At
	if at.IsZero() {
		at = time.Now()
	}

	usage := db.ApiUsage{
		ApiKeyID:  input.ApiKeyID,
		UserID:    input.UserID,
		Resource:  input.Resource,
		UsageDate: DayKey(at),
		Count:     1,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "api_key_id"},
			{Name: "user_id"},
			{Name: "resource"},
			{Name: "usage_date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&usage).Error; err != nil {
		return fmt.Errorf("track api usage: %w", err)
	}

	return nil
}

// Recent 返回用户最近的用量记录，按日期倒序
func (s *UsageService) Recent(userID uint, limit int) ([]db.ApiUsage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var usages []db.ApiUsage
	if err := s.db.Where("user_id = ?", userID).
		Order("usage_date DESC, updated_at DESC").
		Limit(limit).
		Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("list api usage: %w", err)
	}

	return usages, nil
}
