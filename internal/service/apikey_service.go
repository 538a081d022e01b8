package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sundo/internal/db"
	"gorm.io/gorm"
)

const apiKeyPrefix = "sndo_"

// AllowedScopes 列出可授予 API 密钥的全部范围
var AllowedScopes = []string{
	"mcp:read",
	"mcp:areas:read",
	"mcp:achievements:read",
	"mcp:achievements:write",
}

var (
	// ErrApiKeyNotFound 在密钥不存在或不属于该用户时返回
	ErrApiKeyNotFound = errors.New("api key not found")
	// ErrApiKeyUnauthorized 在密钥无效、吊销、过期或缺少范围时返回
	ErrApiKeyUnauthorized = errors.New("api key unauthorized")
	// ErrInvalidScope 在请求了未知授权范围时返回
	ErrInvalidScope = errors.New("invalid api key scope")
)

// ApiKeyService 负责 API 密钥的签发、校验与吊销
// 数据库只保存 sha256 哈希，原始密钥仅在创建时返回一次
type ApiKeyService struct {
	db *gorm.DB
}

// ApiKeyInput 定义创建密钥时可配置的字段
type ApiKeyInput struct {
	UserID    uint
	Name      string
	Scopes    []string
	ExpiresAt *time.Time
}

// NewApiKeyService 构造 ApiKeyService
func NewApiKeyService(gdb *gorm.DB) *ApiKeyService {
	return &ApiKeyService{db: gdb}
}

// GenerateKey 生成一个带前缀的随机密钥
func GenerateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

// HashKey 计算密钥的 sha256 十六进制哈希
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create 签发新密钥，返回记录与原始密钥（此后不再可见）
func (s *ApiKeyService) Create(input ApiKeyInput) (*db.ApiKey, string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", fmt.Errorf("api key name is required")
	}

	scopes := make([]string, 0, len(input.Scopes))
	for _, scope := range input.Scopes {
		trimmed := strings.TrimSpace(scope)
		if trimmed == "" {
			continue
		}
		if !scopeAllowed(trimmed) {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidScope, trimmed)
		}
		scopes = append(scopes, trimmed)
	}

	raw, err := GenerateKey()
	if err != nil {
		return nil, "", err
	}

	key := db.ApiKey{
		UserID:    input.UserID,
		KeyHash:   HashKey(raw),
		Name:      name,
		Scopes:    strings.Join(scopes, ","),
		ExpiresAt: input.ExpiresAt,
	}
	if err := s.db.Create(&key).Error; err != nil {
		return nil, "", fmt.Errorf("create api key: %w", err)
	}

	return &key, raw, nil
}

// Authenticate 校验 Bearer 密钥并检查授权范围。
// 通过后顺带更新 LastUsedAt；任何一项不满足都返回 ErrApiKeyUnauthorized
func (s *ApiKeyService) Authenticate(rawKey, requiredScope string) (*db.ApiKey, error) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, ErrApiKeyUnauthorized
	}

	var key db.ApiKey
	err := s.db.Where("key_hash = ? AND revoked = ?", HashKey(rawKey), false).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApiKeyUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate api key: %w", err)
	}

	if key.ExpiresAt != nil && !key.ExpiresAt.After(time.Now()) {
		return nil, ErrApiKeyUnauthorized
	}
	if requiredScope != "" && !key.HasScope(requiredScope) {
		return nil, ErrApiKeyUnauthorized
	}

	now := time.Now()
	if err := s.db.Model(&db.ApiKey{}).Where("id = ?", key.ID).
		Update("last_used_at", now).Error; err != nil {
		return nil, fmt.Errorf("touch api key: %w", err)
	}
	key.LastUsedAt = &now

	return &key, nil
}

// List 返回用户的全部密钥（含已吊销），按创建时间倒序
func (s *ApiKeyService) List(userID uint) ([]db.ApiKey, error) {
	var keys []db.ApiKey
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// Revoke 吊销指定密钥
func (s *ApiKeyService) Revoke(userID, keyID uint) error {
	result := s.db.Model(&db.ApiKey{}).
		Where("id = ? AND user_id = ?", keyID, userID).
		Update("revoked", true)
	if result.Error != nil {
		return fmt.Errorf("revoke api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrApiKeyNotFound
	}
	return nil
}

// Delete 删除指定密钥
func (s *ApiKeyService) Delete(userID, keyID uint) error {
	result := s.db.Where("user_id = ?", userID).Delete(&db.ApiKey{}, keyID)
	if result.Error != nil {
		return fmt.Errorf("delete api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrApiKeyNotFound
	}
	return nil
}

func scopeAllowed(scope string) bool {
	for _, allowed := range AllowedScopes {
		if scope == allowed {
			return true
		}
	}
	return false
}
