package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
	"github.com/sundo/internal/service"
)

type mcpAchievementPayload struct {
	Text string `json:"text"`
	Note string `json:"note"`
}

// mcpAuthenticate 校验 Bearer 密钥并记录本次调用的用量。
// 用量记账失败不阻断请求本身
func (a *API) mcpAuthenticate(c *gin.Context, scope, resource string) (*db.ApiKey, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		respondError(c, http.StatusForbidden, "unauthorized")
		return nil, false
	}

	key, err := a.apiKeys.Authenticate(strings.TrimPrefix(auth, "Bearer "), scope)
	if err != nil {
		respondError(c, http.StatusForbidden, "unauthorized")
		return nil, false
	}

	if err := a.usage.Track(service.UsageInput{
		ApiKeyID: key.ID,
		UserID:   key.UserID,
		Resource: resource,
	}); err != nil {
		c.Error(err)
	}

	return key, true
}

// McpGetAchievements 返回密钥所属用户今天的成就日志
func (a *API) McpGetAchievements(c *gin.Context) {
	key, ok := a.mcpAuthenticate(c, "mcp:achievements:read", "api.mcp.achievements.read")
	if !ok {
		return
	}

	log, err := a.achievements.ForDay(key.UserID, time.Now())
	if err != nil {
		handleAchievementError(c, err)
		return
	}

	c.JSON(http.StatusOK, achievementToPayload(*log))
}

// McpPostAchievement 通过 MCP 接口追加成就，条目加 [MCP] 前缀，
// 附带备注时以围栏格式拼接到当日备注之后
func (a *API) McpPostAchievement(c *gin.Context) {
	key, ok := a.mcpAuthenticate(c, "mcp:achievements:write", "api.mcp.achievements.write")
	if !ok {
		return
	}

	var payload mcpAchievementPayload
	if !bindJSON(c, &payload, "invalid achievement payload") {
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		respondError(c, http.StatusBadRequest, "text is required")
		return
	}

	now := time.Now()
	if _, err := a.achievements.Append(key.UserID, now, "[MCP] "+strings.TrimSpace(payload.Text)); err != nil {
		handleAchievementError(c, err)
		return
	}

	message := "Achievement saved successfully."
	if strings.TrimSpace(payload.Note) != "" {
		log, err := a.achievements.ForDay(key.UserID, now)
		if err != nil {
			handleAchievementError(c, err)
			return
		}
		if _, err := a.achievements.UpdateNote(key.UserID, now,
			service.MergeMCPNote(log.Note, payload.Note)); err != nil {
			handleAchievementError(c, err)
			return
		}
		message = "Achievement and note saved successfully."
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// McpGetContext 返回密钥所属用户的领域与任务全景
func (a *API) McpGetContext(c *gin.Context) {
	key, ok := a.mcpAuthenticate(c, "mcp:areas:read", "api.mcp.context.read")
	if !ok {
		return
	}

	areas, err := a.areas.List(key.UserID)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(areas))
	for _, area := range areas {
		payload = append(payload, areaToPayload(area))
	}

	c.JSON(http.StatusOK, gin.H{"user": key.UserID, "context": payload})
}
