package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
	"github.com/sundo/internal/service"
)

type apiKeyPayload struct {
	Name      string   `json:"name"`
	Scopes    []string `json:"scopes"`
	ExpiresAt string   `json:"expires_at"`
}

// ListApiKeys 返回当前用户的密钥列表（不含哈希）
func (a *API) ListApiKeys(c *gin.Context) {
	userID, _ := currentUserID(c)

	keys, err := a.apiKeys.List(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		payload = append(payload, apiKeyToPayload(key))
	}
	c.JSON(http.StatusOK, gin.H{"keys": payload})
}

// CreateApiKey 签发新密钥，原始密钥只在响应中出现一次
func (a *API) CreateApiKey(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload apiKeyPayload
	if !bindJSON(c, &payload, "invalid api key payload") {
		return
	}

	// 未指定范围时授予默认只读范围
	scopes := payload.Scopes
	if len(scopes) == 0 {
		scopes = []string{"mcp:areas:read", "mcp:achievements:read"}
	}

	var expiresAt *time.Time
	if raw := strings.TrimSpace(payload.ExpiresAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid expires_at")
			return
		}
		expiresAt = &parsed
	}

	key, rawKey, err := a.apiKeys.Create(service.ApiKeyInput{
		UserID:    userID,
		Name:      payload.Name,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidScope) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	result := apiKeyToPayload(*key)
	result["key"] = rawKey
	c.JSON(http.StatusCreated, result)
}

// RevokeApiKey 吊销指定密钥
func (a *API) RevokeApiKey(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.apiKeys.Revoke(userID, id); err != nil {
		handleApiKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
}

// DeleteApiKey 删除指定密钥
func (a *API) DeleteApiKey(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.apiKeys.Delete(userID, id); err != nil {
		handleApiKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetApiUsage 返回当前用户最近的 API 用量记录
func (a *API) GetApiUsage(c *gin.Context) {
	userID, _ := currentUserID(c)

	limit := 100
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	usages, err := a.usage.Recent(userID, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]gin.H, 0, len(usages))
	for _, usage := range usages {
		payload = append(payload, gin.H{
			"api_key_id": usage.ApiKeyID,
			"resource":   usage.Resource,
			"date":       usage.UsageDate.Format(statDateFormat),
			"count":      usage.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"usage": payload})
}

func apiKeyToPayload(key db.ApiKey) gin.H {
	payload := gin.H{
		"id":      key.ID,
		"name":    key.Name,
		"scopes":  key.ScopeList(),
		"revoked": key.Revoked,
	}
	if key.LastUsedAt != nil {
		payload["last_used_at"] = key.LastUsedAt.Format(time.RFC3339)
	}
	if key.ExpiresAt != nil {
		payload["expires_at"] = key.ExpiresAt.Format(time.RFC3339)
	}
	return payload
}

func handleApiKeyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrApiKeyNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case err != nil:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
