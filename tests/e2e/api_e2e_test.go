package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
	"github.com/sundo/internal/handler"
	"github.com/sundo/internal/router"
	"golang.org/x/crypto/bcrypt"
)

const (
	e2eUsername   = "sundo"
	e2ePassword   = "e2e-secret"
	e2eCronSecret = "cron-secret"
)

type e2eSuite struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if err := db.Init(filepath.Join(t.TempDir(), "sundo-e2e.db")); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(e2ePassword), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.DB.Create(&db.User{Username: e2eUsername, Password: string(hashed)}).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	api := handler.NewAPI(db.DB, e2eCronSecret)
	// 会话 Cookie 带 Secure 标记，需通过 TLS 访问才能被 cookie jar 保留
	server := httptest.NewTLSServer(router.SetupRouter(api, "session-secret"))
	t.Cleanup(server.Close)
	t.Cleanup(func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	client := server.Client()
	client.Jar = jar

	return &e2eSuite{t: t, server: server, client: client}
}

func (s *e2eSuite) request(method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		s.t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp.StatusCode, decoded
}

func TestE2E_TrackerFlow(t *testing.T) {
	s := newE2ESuite(t)

	// 未登录访问受保护接口
	if status, _ := s.request(http.MethodGet, "/api/areas", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", status)
	}

	// 登录
	status, _ := s.request(http.MethodPost, "/login", map[string]string{
		"username": e2eUsername,
		"password": e2ePassword,
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("login failed with status %d", status)
	}

	// 创建领域与任务
	status, area := s.request(http.MethodPost, "/api/areas", map[string]interface{}{
		"name":  "Fitness",
		"tasks": []string{"run", "lift", "stretch", "swim", "row"},
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create area failed with status %d", status)
	}

	tasks, ok := area["tasks"].([]interface{})
	if !ok || len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %v", area["tasks"])
	}

	// 完成两个任务，触发当日快照
	for i := 0; i < 2; i++ {
		task := tasks[i].(map[string]interface{})
		path := fmt.Sprintf("/api/tasks/%.0f/status", task["id"].(float64))
		if status, _ := s.request(http.MethodPut, path, map[string]interface{}{
			"completed": true,
			"achieved":  100,
		}, nil); status != http.StatusOK {
			t.Fatalf("set task status failed with status %d", status)
		}
	}

	// 读路径返回投影后的快照
	status, daily := s.request(http.MethodGet, "/api/stats/daily", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("daily stats failed with status %d", status)
	}
	stats := daily["stats"].([]interface{})
	if len(stats) != 1 {
		t.Fatalf("expected 1 day record, got %d", len(stats))
	}
	areas := stats[0].(map[string]interface{})["areas"].([]interface{})
	snapshot := areas[0].(map[string]interface{})
	if snapshot["total"].(float64) != 5 || snapshot["completed"].(float64) != 2 || snapshot["achieved"].(float64) != 40 {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}

	// 记录成就并检查年度热力图
	if status, _ := s.request(http.MethodPost, "/api/achievements", map[string]string{
		"text": "完成晨跑",
	}, nil); status != http.StatusCreated {
		t.Fatalf("append achievement failed with status %d", status)
	}

	status, yearly := s.request(http.MethodGet, "/api/stats/yearly", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("yearly histogram failed with status %d", status)
	}
	counts := yearly["daily_counts"].([]interface{})
	if len(counts) != 365 && len(counts) != 366 {
		t.Fatalf("unexpected histogram length %d", len(counts))
	}
	sum := 0.0
	for _, count := range counts {
		sum += count.(float64)
	}
	if sum != 1 {
		t.Fatalf("expected 1 achievement in histogram, got %v", sum)
	}

	// 签发 API 密钥
	status, key := s.request(http.MethodPost, "/api/api-keys", map[string]interface{}{
		"name":   "cli",
		"scopes": []string{"mcp:areas:read", "mcp:achievements:read", "mcp:achievements:write"},
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create api key failed with status %d", status)
	}
	rawKey, ok := key["key"].(string)
	if !ok || !strings.HasPrefix(rawKey, "sndo_") {
		t.Fatalf("expected raw key in response, got %v", key["key"])
	}

	bearer := map[string]string{"Authorization": "Bearer " + rawKey}

	// MCP 上下文读取
	status, mcpContext := s.request(http.MethodGet, "/api/mcp/context", nil, bearer)
	if status != http.StatusOK {
		t.Fatalf("mcp context failed with status %d", status)
	}
	if contextAreas := mcpContext["context"].([]interface{}); len(contextAreas) != 1 {
		t.Fatalf("expected 1 area in mcp context, got %d", len(contextAreas))
	}

	// MCP 写入成就与备注
	if status, _ := s.request(http.MethodPost, "/api/mcp/achievements", map[string]string{
		"text": "shipped feature",
		"note": "done via api",
	}, bearer); status != http.StatusOK {
		t.Fatalf("mcp post achievement failed with status %d", status)
	}

	status, achievement := s.request(http.MethodGet, "/api/achievements", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("get achievement failed with status %d", status)
	}
	entries := achievement["achievements"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	foundMCP := false
	for _, raw := range entries {
		entry := raw.(map[string]interface{})
		if strings.HasPrefix(entry["text"].(string), "[MCP] ") {
			foundMCP = true
		}
	}
	if !foundMCP {
		t.Fatalf("expected one entry with [MCP] prefix, got %v", entries)
	}
	if note := achievement["note"].(string); !strings.Contains(note, "[MCP]") || !strings.Contains(note, "done via api") {
		t.Fatalf("expected fenced mcp note, got %q", note)
	}

	// 用量记账：两次 MCP 调用各一条计数
	status, usage := s.request(http.MethodGet, "/api/api-usage", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("get api usage failed with status %d", status)
	}
	usageRows := usage["usage"].([]interface{})
	if len(usageRows) != 2 {
		t.Fatalf("expected 2 usage rows, got %d", len(usageRows))
	}

	// 定时任务入口
	status, cron := s.request(http.MethodGet, "/api/cron/daily-stats", nil, map[string]string{
		"Authorization": "Bearer " + e2eCronSecret,
	})
	if status != http.StatusOK || cron["success"] != true {
		t.Fatalf("cron endpoint failed: status=%d body=%v", status, cron)
	}
}
