package db

import "time"

// ApiUsage 按 (密钥, 用户, 资源, 自然日) 维度累计 API 调用次数。
// 四元组采用唯一索引，计数通过存储层原子自增更新，避免读改写竞争
type ApiUsage struct {
	ID        uint      `gorm:"primaryKey"`
	ApiKeyID  uint      `gorm:"index;uniqueIndex:idx_api_usage_key"`
	UserID    uint      `gorm:"index;uniqueIndex:idx_api_usage_key"`
	Resource  string    `gorm:"size:120;not null;uniqueIndex:idx_api_usage_key"`
	UsageDate time.Time `gorm:"index;uniqueIndex:idx_api_usage_key"`
	Count     uint64    `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (ApiUsage) TableName() string {
	return "api_usages"
}
