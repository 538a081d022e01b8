package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
	"github.com/sundo/internal/service"
)

type achievementPayload struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

type achievementNotePayload struct {
	Note string `json:"note"`
	Date string `json:"date"`
}

// GetAchievement 返回指定日期（默认今天）的成就日志。
// 当天的日志不存在时惰性创建；未来日期返回 404
func (a *API) GetAchievement(c *gin.Context) {
	userID, _ := currentUserID(c)

	log, err := a.achievements.ForDay(userID, service.ParseDayParam(c.Query("date")))
	if err != nil {
		handleAchievementError(c, err)
		return
	}

	c.JSON(http.StatusOK, achievementToPayload(*log))
}

// AppendAchievement 向指定日期的日志追加一条成就
func (a *API) AppendAchievement(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload achievementPayload
	if !bindJSON(c, &payload, "invalid achievement payload") {
		return
	}

	entry, err := a.achievements.Append(userID, service.ParseDayParam(payload.Date), payload.Text)
	if err != nil {
		handleAchievementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": entry.ID, "text": entry.Text})
}

// DeleteAchievementEntry 按条目 ID 删除成就
func (a *API) DeleteAchievementEntry(c *gin.Context) {
	userID, _ := currentUserID(c)

	entryID := c.Param("id")
	if err := a.achievements.DeleteEntry(userID, entryID); err != nil {
		handleAchievementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// UpdateAchievementNote 整体替换指定日期日志的备注
func (a *API) UpdateAchievementNote(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload achievementNotePayload
	if !bindJSON(c, &payload, "invalid note payload") {
		return
	}

	log, err := a.achievements.UpdateNote(userID, service.ParseDayParam(payload.Date), payload.Note)
	if err != nil {
		handleAchievementError(c, err)
		return
	}

	c.JSON(http.StatusOK, achievementToPayload(*log))
}

// GetAchievementNoteHTML 返回备注渲染后的 HTML
func (a *API) GetAchievementNoteHTML(c *gin.Context) {
	userID, _ := currentUserID(c)

	log, err := a.achievements.ForDay(userID, service.ParseDayParam(c.Query("date")))
	if err != nil {
		handleAchievementError(c, err)
		return
	}

	rendered, err := service.RenderNoteHTML(log.Note)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"html": rendered})
}

func achievementToPayload(log db.AchievementLog) gin.H {
	entries := make([]gin.H, 0, len(log.Entries))
	for _, entry := range log.Entries {
		entries = append(entries, gin.H{"id": entry.ID, "text": entry.Text})
	}

	return gin.H{
		"id":           log.ID,
		"date":         log.LogDate.Format(statDateFormat),
		"achievements": entries,
		"note":         log.Note,
		"created_at":   log.CreatedAt.Format(time.RFC3339),
	}
}

func handleAchievementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAchievementNotFound), errors.Is(err, service.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyAchievement):
		respondError(c, http.StatusBadRequest, err.Error())
	case err != nil:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
