package service

import (
	"testing"
	"time"

	"github.com/sundo/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStatsTestDB(t *testing.T) func() {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.DayStat{}, &db.AreaSnapshot{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestRecordAreaProgressMergesSameArea(t *testing.T) {
	cleanup := setupStatsTestDB(t)
	defer cleanup()

	svc := NewStatsService(db.DB)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

	if _, err := svc.RecordAreaProgress(AreaProgressInput{
		UserID: 1, Area: "Fitness", Total: 5, Completed: 2, At: base,
	}); err != nil {
		t.Fatalf("first record failed: %v", err)
	}

	stat, err := svc.RecordAreaProgress(AreaProgressInput{
		UserID: 1, Area: "Fitness", Total: 5, Completed: 4, At: base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	if len(stat.Areas) != 1 {
		t.Fatalf("expected 1 snapshot after merge, got %d", len(stat.Areas))
	}

	snapshot := stat.Areas[0]
	if snapshot.Total != 5 || snapshot.Completed != 4 || snapshot.Achieved != 80 {
		t.Fatalf("unexpected snapshot after merge: %+v", snapshot)
	}

	// 数据库层面也只有一条快照
	var count int64
	if err := db.DB.Model(&db.AreaSnapshot{}).Count(&count).Error; err != nil {
		t.Fatalf("count snapshots failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 snapshot row, got %d", count)
	}

	var statCount int64
	if err := db.DB.Model(&db.DayStat{}).Count(&statCount).Error; err != nil {
		t.Fatalf("count day stats failed: %v", err)
	}
	if statCount != 1 {
		t.Fatalf("expected 1 day stat row, got %d", statCount)
	}
}

func TestRecordAreaProgressAccumulatesAreasAndDays(t *testing.T) {
	cleanup := setupStatsTestDB(t)
	defer cleanup()

	svc := NewStatsService(db.DB)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

	if _, err := svc.RecordAreaProgress(AreaProgressInput{
		UserID: 1, Area: "Fitness", Total: 5, Completed: 2, At: base,
	}); err != nil {
		t.Fatalf("record fitness failed: %v", err)
	}

	stat, err := svc.RecordAreaProgress(AreaProgressInput{
		UserID: 1, Area: "Work", Total: 10, Completed: 3, At: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("record work failed: %v", err)
	}

	if len(stat.Areas) != 2 {
		t.Fatalf("expected 2 snapshots for distinct areas, got %d", len(stat.Areas))
	}

	// 跨天产生新的聚合记录
	if _, err := svc.RecordAreaProgress(AreaProgressInput{
		UserID: 1, Area: "Fitness", Total: 5, Completed: 5, At: base.AddDate(0, 0, 1),
	}); err != nil {
		t.Fatalf("record next day failed: %v", err)
	}

	var statCount int64
	if err := db.DB.Model(&db.DayStat{}).Count(&statCount).Error; err != nil {
		t.Fatalf("count day stats failed: %v", err)
	}
	if statCount != 2 {
		t.Fatalf("expected 2 day stat rows, got %d", statCount)
	}
}

func TestRecordAreaProgressRejectsEmptyArea(t *testing.T) {
	cleanup := setupStatsTestDB(t)
	defer cleanup()

	svc := NewStatsService(db.DB)
	if _, err := svc.RecordAreaProgress(AreaProgressInput{UserID: 1, Area: "  "}); err == nil {
		t.Fatal("expected error for empty area name")
	}
}

func TestProjectDayStatsCollapsesDuplicates(t *testing.T) {
	stats := []db.DayStat{{
		UserID:   1,
		StatDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		Areas: []db.AreaSnapshot{
			{Area: "Work", Total: 10, Completed: 3, Achieved: 30},
			{Area: "Work", Total: 10, Completed: 7, Achieved: 30},
			{Area: "Fitness", Total: 4, Completed: 2, Achieved: 99},
		},
	}}

	projected := ProjectDayStats(stats)

	if len(projected) != 1 {
		t.Fatalf("expected record count preserved, got %d", len(projected))
	}

	areas := projected[0].Areas
	if len(areas) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 areas, got %d", len(areas))
	}

	work := areas[0]
	if work.Area != "Work" || work.Total != 10 || work.Completed != 7 || work.Achieved != 70 {
		t.Fatalf("unexpected collapsed work snapshot: %+v", work)
	}

	// 未重复的条目同样重新计算 achieved，不信任存储值
	fitness := areas[1]
	if fitness.Achieved != 50 {
		t.Fatalf("expected recomputed achieved 50, got %d", fitness.Achieved)
	}
}

func TestProjectDayStatsIdempotent(t *testing.T) {
	stats := []db.DayStat{{
		UserID:   1,
		StatDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		Areas: []db.AreaSnapshot{
			{Area: "Work", Total: 10, Completed: 3},
			{Area: "Work", Total: 12, Completed: 7},
		},
	}}

	once := ProjectDayStats(stats)
	twice := ProjectDayStats(once)

	if len(once) != len(twice) {
		t.Fatalf("projection changed record count: %d vs %d", len(once), len(twice))
	}

	for i := range once {
		if len(once[i].Areas) != len(twice[i].Areas) {
			t.Fatalf("projection not idempotent at record %d", i)
		}
		for j := range once[i].Areas {
			if once[i].Areas[j] != twice[i].Areas[j] {
				t.Fatalf("projection not idempotent: %+v vs %+v", once[i].Areas[j], twice[i].Areas[j])
			}
		}
	}
}

func TestProjectDayStatsZeroTotal(t *testing.T) {
	stats := []db.DayStat{{
		Areas: []db.AreaSnapshot{{Area: "Empty", Total: 0, Completed: 0, Achieved: 88}},
	}}

	projected := ProjectDayStats(stats)
	if projected[0].Areas[0].Achieved != 0 {
		t.Fatalf("expected achieved 0 for zero total, got %d", projected[0].Areas[0].Achieved)
	}
}

func TestDailyReturnsProjectedRecords(t *testing.T) {
	cleanup := setupStatsTestDB(t)
	defer cleanup()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

	// 直接写入带重复领域的历史数据，模拟并发写入留下的脏数据
	dirty := db.DayStat{
		UserID:   1,
		StatDate: base,
		Areas: []db.AreaSnapshot{
			{Area: "Work", Total: 10, Completed: 3},
			{Area: "Work", Total: 10, Completed: 7},
		},
	}
	if err := db.DB.Create(&dirty).Error; err != nil {
		t.Fatalf("failed to seed dirty record: %v", err)
	}

	clean := db.DayStat{
		UserID:   1,
		StatDate: base.AddDate(0, 0, 1),
		Areas:    []db.AreaSnapshot{{Area: "Fitness", Total: 5, Completed: 4}},
	}
	if err := db.DB.Create(&clean).Error; err != nil {
		t.Fatalf("failed to seed clean record: %v", err)
	}

	svc := NewStatsService(db.DB)
	stats, err := svc.Daily(1, 7)
	if err != nil {
		t.Fatalf("Daily returned error: %v", err)
	}

	if len(stats) != 2 {
		t.Fatalf("expected 2 records, got %d", len(stats))
	}

	// 按日期倒序
	if !stats[0].StatDate.After(stats[1].StatDate) {
		t.Fatal("expected records ordered most-recent first")
	}

	if len(stats[1].Areas) != 1 || stats[1].Areas[0].Completed != 7 || stats[1].Areas[0].Achieved != 70 {
		t.Fatalf("expected dirty record collapsed to {10,7,70}, got %+v", stats[1].Areas)
	}

	if stats[0].Areas[0].Achieved != 80 {
		t.Fatalf("expected recomputed achieved 80, got %d", stats[0].Areas[0].Achieved)
	}
}
