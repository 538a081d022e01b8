package handler

import (
	"github.com/sundo/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	areas        *service.AreaService
	stats        *service.StatsService
	achievements *service.AchievementService
	apiKeys      *service.ApiKeyService
	usage        *service.UsageService
	cronSecret   string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, cronSecret string) *API {
	statsService := service.NewStatsService(db)

	return &API{
		db:           db,
		areas:        service.NewAreaService(db, statsService),
		stats:        statsService,
		achievements: service.NewAchievementService(db),
		apiKeys:      service.NewApiKeyService(db),
		usage:        service.NewUsageService(db),
		cronSecret:   cronSecret,
	}
}
