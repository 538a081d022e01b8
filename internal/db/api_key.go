package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ApiKey 存储 API 密钥的哈希与授权范围，原始密钥只在创建时返回一次。
// Scopes 以逗号分隔保存；Revoked 吊销后立即失效，ExpiresAt 为空表示永不过期
type ApiKey struct {
	gorm.Model
	UserID     uint   `gorm:"index"`
	KeyHash    string `gorm:"size:64;uniqueIndex;not null"`
	Name       string `gorm:"size:120;not null"`
	Scopes     string `gorm:"type:text"`
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	Revoked    bool `gorm:"default:false"`
}

// TableName 指定自定义表名。
func (ApiKey) TableName() string {
	return "api_keys"
}

// ScopeList 返回去除空白后的授权范围切片。
func (k ApiKey) ScopeList() []string {
	parts := strings.Split(k.Scopes, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}

// HasScope 判断密钥是否持有指定范围。
func (k ApiKey) HasScope(scope string) bool {
	for _, s := range k.ScopeList() {
		if s == scope {
			return true
		}
	}
	return false
}
