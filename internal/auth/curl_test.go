package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const workingCurl = `curl 'https://takeout.google.com/settings/takeout/download?i=0&j=123&download=true&rapt=test-rapt' \
    -H 'User-Agent: test-agent' \
    -H 'Accept: */*' \
    -b 'SID=abc123; HSID=def456'`

func TestParseCurl(t *testing.T) {
	now := time.Now()
	sess, err := ParseCurl(workingCurl, now)
	if err != nil {
		t.Fatalf("ParseCurl failed: %v", err)
	}

	if sess.Token() != "test-rapt" {
		t.Errorf("Token = %q, want %q", sess.Token(), "test-rapt")
	}
	if ua, ok := sess.Header("User-Agent"); !ok || ua != "test-agent" {
		t.Errorf("Header(User-Agent) = (%q, %v), want test-agent", ua, ok)
	}
	if sess.Cookies()["SID"] != "abc123" {
		t.Errorf("cookie SID = %q, want abc123", sess.Cookies()["SID"])
	}
	if sess.Cookies()["HSID"] != "def456" {
		t.Errorf("cookie HSID = %q, want def456", sess.Cookies()["HSID"])
	}
	if !sess.ObtainedAt().Equal(now) {
		t.Errorf("ObtainedAt = %v, want %v", sess.ObtainedAt(), now)
	}
}

func TestParseCurlHeaderCaseInsensitive(t *testing.T) {
	sess, err := ParseCurl(workingCurl, time.Now())
	if err != nil {
		t.Fatalf("ParseCurl failed: %v", err)
	}
	if ua, ok := sess.Header("user-agent"); !ok || ua != "test-agent" {
		t.Errorf("Header(user-agent) = (%q, %v), want case-insensitive match", ua, ok)
	}
}

func TestParseCurlRejectsForeignRequest(t *testing.T) {
	curl := `curl 'https://example.com/download?rapt=x' -H 'Accept: */*'`
	if _, err := ParseCurl(curl, time.Now()); err == nil {
		t.Error("expected error for non-takeout capture")
	}
}

func TestParseCurlMissingRapt(t *testing.T) {
	curl := `curl 'https://takeout.google.com/' -H 'Accept: */*' -b 'a=1'`
	if _, err := ParseCurl(curl, time.Now()); err == nil {
		t.Error("expected error when no rapt token present")
	}
}

func TestParseCurlPartialCookies(t *testing.T) {
	curl := `curl 'https://takeout.google.com/settings/takeout/download?rapt=tok' -b 'a=1'`
	sess, err := ParseCurl(curl, time.Now())
	if err != nil {
		t.Fatalf("ParseCurl failed: %v", err)
	}
	cookies := sess.Cookies()
	if len(cookies) != 1 || cookies["a"] != "1" {
		t.Errorf("cookies = %v, want {a: 1}", cookies)
	}
}

func TestIsStale(t *testing.T) {
	sess := NewSession(nil, nil, "tok", time.Now().Add(-2*time.Hour))
	if !sess.IsStale(time.Hour) {
		t.Error("session obtained 2h ago should be stale with 1h hint")
	}
	if sess.IsStale(3 * time.Hour) {
		t.Error("session obtained 2h ago should not be stale with 3h hint")
	}
	if sess.IsStale(0) {
		t.Error("zero hint disables the staleness check")
	}
}

func TestCurlFileProviderRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curl.txt")
	if err := os.WriteFile(path, []byte(workingCurl), 0600); err != nil {
		t.Fatalf("writing capture file: %v", err)
	}

	p := &CurlFileProvider{Path: path}
	sess, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if sess.Token() != "test-rapt" {
		t.Errorf("Token = %q, want test-rapt", sess.Token())
	}

	// Overwriting the capture is how a new token arrives.
	fresh := `curl 'https://takeout.google.com/settings/takeout/download?rapt=renewed' -b 'SID=zzz'`
	if err := os.WriteFile(path, []byte(fresh), 0600); err != nil {
		t.Fatalf("rewriting capture file: %v", err)
	}
	sess, err = p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if sess.Token() != "renewed" {
		t.Errorf("Token after rewrite = %q, want renewed", sess.Token())
	}
}

func TestCurlFileProviderMissingFile(t *testing.T) {
	p := &CurlFileProvider{Path: filepath.Join(t.TempDir(), "nope.txt")}
	if _, err := p.Refresh(context.Background()); err == nil {
		t.Error("expected error for missing capture file")
	}
}
