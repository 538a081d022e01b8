package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
)

const statDateFormat = "2006-01-02"

// GetDailyStats 返回最近若干天的进度记录（读路径经过投影收敛）
func (a *API) GetDailyStats(c *gin.Context) {
	userID, _ := currentUserID(c)

	count := 7
	if raw := strings.TrimSpace(c.Query("count")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			count = parsed
		}
	}

	stats, err := a.stats.Daily(userID, count)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]gin.H, 0, len(stats))
	for _, stat := range stats {
		payload = append(payload, dayStatToPayload(stat))
	}

	c.JSON(http.StatusOK, gin.H{"stats": payload})
}

// GetYearlyHistogram 返回当前（或指定）年份的逐日成就计数
func (a *API) GetYearlyHistogram(c *gin.Context) {
	userID, _ := currentUserID(c)

	year := time.Now().Year()
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			year = parsed
		}
	}

	counts, err := a.achievements.YearlyHistogram(userID, year)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "daily_counts": counts})
}

// RunDailyStats 由定时任务调用，为所有领域写入当日快照。
// 通过 CRON_SECRET 的 Bearer 校验，与会话认证无关
func (a *API) RunDailyStats(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if a.cronSecret == "" || auth != "Bearer "+a.cronSecret {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.areas.SnapshotAll(time.Now()); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "daily stats job failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "daily stats job executed"})
}

func dayStatToPayload(stat db.DayStat) gin.H {
	areas := make([]gin.H, 0, len(stat.Areas))
	for _, snapshot := range stat.Areas {
		areas = append(areas, gin.H{
			"area":      snapshot.Area,
			"total":     snapshot.Total,
			"completed": snapshot.Completed,
			"achieved":  snapshot.Achieved,
		})
	}

	return gin.H{
		"date":  stat.StatDate.Format(statDateFormat),
		"areas": areas,
	}
}
