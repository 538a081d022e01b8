package service

import (
	"strings"
	"testing"
)

func TestRenderNoteHTML(t *testing.T) {
	html, err := RenderNoteHTML("# 今日小结\n\n完成 **全部** 任务")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}

	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<strong>全部</strong>") {
		t.Fatalf("unexpected rendered html: %q", html)
	}
}

func TestRenderNoteHTMLSanitizesScripts(t *testing.T) {
	html, err := RenderNoteHTML("hello <script>alert(1)</script> world")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Fatalf("expected script tags stripped, got %q", html)
	}
}

func TestRenderNoteHTMLEmpty(t *testing.T) {
	html, err := RenderNoteHTML("")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}
	if html != "" {
		t.Fatalf("expected empty output, got %q", html)
	}
}
