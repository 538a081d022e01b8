package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("sundo_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)

	// 定时任务入口，使用 CRON_SECRET 鉴权
	r.GET("/api/cron/daily-stats", api.RunDailyStats)

	// MCP 接口使用 API 密钥鉴权
	mcp := r.Group("/api/mcp")
	{
		mcp.GET("/achievements", api.McpGetAchievements)
		mcp.POST("/achievements", api.McpPostAchievement)
		mcp.GET("/context", api.McpGetContext)
	}

	// 需要会话认证的应用接口
	auth := r.Group("/api")
	auth.Use(handler.AuthRequired())
	{
		auth.GET("/areas", api.ListAreas)
		auth.POST("/areas", api.CreateArea)
		auth.GET("/areas/:id", api.GetArea)
		auth.PUT("/areas/:id", api.RenameArea)
		auth.PUT("/areas/:id/note", api.UpdateAreaNote)
		auth.DELETE("/areas/:id", api.DeleteArea)
		auth.POST("/areas/:id/tasks", api.AddTask)
		auth.PUT("/tasks/:id", api.UpdateTask)
		auth.DELETE("/tasks/:id", api.DeleteTask)
		auth.PUT("/tasks/:id/status", api.SetTaskStatus)

		auth.GET("/stats/daily", api.GetDailyStats)
		auth.GET("/stats/yearly", api.GetYearlyHistogram)

		auth.GET("/achievements", api.GetAchievement)
		auth.POST("/achievements", api.AppendAchievement)
		auth.DELETE("/achievements/entries/:id", api.DeleteAchievementEntry)
		auth.PUT("/achievements/note", api.UpdateAchievementNote)
		auth.GET("/achievements/note/html", api.GetAchievementNoteHTML)

		auth.GET("/api-keys", api.ListApiKeys)
		auth.POST("/api-keys", api.CreateApiKey)
		auth.POST("/api-keys/:id/revoke", api.RevokeApiKey)
		auth.DELETE("/api-keys/:id", api.DeleteApiKey)
		auth.GET("/api-usage", api.GetApiUsage)
	}

	return r
}
