package security

import (
	"strings"
	"testing"
)

func TestSanitize_RemovesScript(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p>こんにちは</p><script>alert(1)</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("scriptタグが除去されていない: %s", got)
	}
	if !strings.Contains(got, "<p>こんにちは</p>") {
		t.Errorf("許可タグが失われた: %s", got)
	}
}

func TestSanitize_RemovesEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p onclick="steal()">本文</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("イベント属性が除去されていない: %s", got)
	}
}

func TestSanitize_ImgHTTPSOnly(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<img src="https://example.com/a.png" alt="図">`)
	if !strings.Contains(got, `src="https://example.com/a.png"`) {
		t.Errorf("httpsのimgが許可されていない: %s", got)
	}

	got = s.Sanitize(`<img src="javascript:alert(1)">`)
	if strings.Contains(got, "javascript") {
		t.Errorf("javascriptスキームのsrcが残っている: %s", got)
	}
}

func TestSanitize_EmptyAndIdempotent(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("空入力に対する出力 = %q, want \"\"", got)
	}

	input := `<p>テスト<strong>強調</strong></p><iframe src="https://evil.example"></iframe>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("サニタイズが冪等ではない: %q != %q", once, twice)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.PlainText(`<p>願書の<strong>締切</strong>について</p>`)
	if got != "願書の締切について" {
		t.Errorf("PlainText = %q, want 願書の締切について", got)
	}
}

func TestPlainText_Empty(t *testing.T) {
	s := NewContentSanitizer()
	if got := s.PlainText(""); got != "" {
		t.Errorf("空入力に対するPlainText = %q", got)
	}
}

func TestPlainText_PlainInputPassesThrough(t *testing.T) {
	s := NewContentSanitizer()
	got := s.PlainText("タグなしの本文")
	if got != "タグなしの本文" {
		t.Errorf("PlainText = %q, want タグなしの本文", got)
	}
}
