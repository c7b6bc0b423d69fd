package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/config"
)

type upload struct {
	path        string
	contentType string
	body        string
}

// fakeS3 accepts every PUT and records it.
func fakeS3(t *testing.T) (*httptest.Server, func() []upload) {
	t.Helper()
	var (
		mu      sync.Mutex
		uploads []upload
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "unexpected "+r.Method, http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads = append(uploads, upload{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(body)})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts, func() []upload {
		mu.Lock()
		defer mu.Unlock()
		return append([]upload(nil), uploads...)
	}
}

func TestPut(t *testing.T) {
	ts, uploads := fakeS3(t)

	s, err := New(config.ObjectStorage{
		Endpoint:  strings.TrimPrefix(ts.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "reports",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := &model.AuditRequest{
		ID:     "3f1c1b8e-56c4-4b5e-9d5e-1b0e8f6e2a11",
		URL:    "https://example.com",
		Status: model.StatusCompleted,
		Scores: &model.Scores{Overall: 91.2},
	}
	if err := s.Put(context.Background(), a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := uploads()
	if len(got) != 2 {
		t.Fatalf("uploads = %d, want 2", len(got))
	}
	if got[0].path != "/reports/audits/"+a.ID+".json" {
		t.Errorf("first path = %q", got[0].path)
	}
	if got[0].contentType != "application/json" {
		t.Errorf("Content-Type = %q", got[0].contentType)
	}
	if !strings.Contains(got[0].body, `"overall": 91.2`) {
		t.Errorf("json body = %s", got[0].body)
	}
	if got[1].path != "/reports/audits/"+a.ID+".md" {
		t.Errorf("second path = %q", got[1].path)
	}
	if !strings.Contains(got[1].body, "# Website Audit Report") {
		t.Errorf("markdown body = %s", got[1].body)
	}
}

func TestPut_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	s, err := New(config.ObjectStorage{
		Endpoint:  strings.TrimPrefix(ts.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "reports",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Put(context.Background(), &model.AuditRequest{ID: "x"}); err == nil {
		t.Fatal("expected an upload error")
	}
}

func TestKey(t *testing.T) {
	if got := Key("abc", "json"); got != "audits/abc.json" {
		t.Errorf("Key = %q", got)
	}
}
