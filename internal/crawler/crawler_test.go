package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/niyahq/niya-backend/internal/platform/logger"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "lowercases scheme and host", in: "HTTPS://Docs.Example.COM/Guide", want: "https://docs.example.com/Guide"},
		{name: "drops fragment", in: "https://example.com/page#section-2", want: "https://example.com/page"},
		{name: "strips default http port", in: "http://example.com:80/x", want: "http://example.com/x"},
		{name: "strips default https port", in: "https://example.com:443/x", want: "https://example.com/x"},
		{name: "keeps explicit port", in: "https://example.com:8443/x", want: "https://example.com:8443/x"},
		{name: "empty path becomes root", in: "https://example.com", want: "https://example.com/"},
		{name: "keeps query", in: "https://example.com/search?q=refunds", want: "https://example.com/search?q=refunds"},
		{name: "trims whitespace", in: "  https://example.com/  ", want: "https://example.com/"},
		{name: "rejects ftp", in: "ftp://example.com/file", wantErr: true},
		{name: "rejects missing host", in: "https://", wantErr: true},
		{name: "rejects relative", in: "/just/a/path", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Canonicalize(%q): expected error, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonicalize(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Canonicalize(%q): want=%q got=%q", tc.in, tc.want, got)
			}
		})
	}
}

func TestFetchCapturesValidatorHeaders(t *testing.T) {
	body := "<html><head><title>Refund Policy</title></head><body><article>" +
		"<h2>Returns</h2><p>" + strings.Repeat("Refunds are accepted for thirty days. ", 20) +
		"</p></article></body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nAllow: /\n"))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Tue, 19 Aug 2025 10:00:00 GMT")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	c := New(Config{MinTextChars: 50, EnableJSFallback: false}, log)

	result, err := c.Fetch(context.Background(), srv.URL+"/policy")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.ETag != `"abc123"` {
		t.Fatalf("etag: want=%q got=%q", `"abc123"`, result.ETag)
	}
	if result.LastModified != "Tue, 19 Aug 2025 10:00:00 GMT" {
		t.Fatalf("last-modified: got %q", result.LastModified)
	}
	if result.Title != "Refund Policy" {
		t.Fatalf("title: got %q", result.Title)
	}
	if result.Rendered {
		t.Fatal("static fetch should not report a rendered page")
	}
}

func TestHTMLToSections(t *testing.T) {
	content := `
<div>
  <h2>Returns</h2>
  <p>Thirty  day
  window.</p>
  <ul><li>Keep the receipt.</li></ul>
  <h2>Shipping</h2>
  <p>Five business days.</p>
  <script>track()</script>
  <h3>Empty Heading</h3>
</div>`

	sections := htmlToSections(content)
	if len(sections) != 2 {
		t.Fatalf("sections: want=2 got=%d (%+v)", len(sections), sections)
	}
	if sections[0].Heading != "Returns" {
		t.Fatalf("first heading: got %q", sections[0].Heading)
	}
	if sections[0].Content != "Thirty day window.\nKeep the receipt." {
		t.Fatalf("first content: got %q", sections[0].Content)
	}
	if sections[1].Heading != "Shipping" {
		t.Fatalf("second heading: got %q", sections[1].Heading)
	}
	if sections[1].Content != "Five business days." {
		t.Fatalf("second content: got %q", sections[1].Content)
	}
}

func TestHTMLToSectionsNoHeadings(t *testing.T) {
	sections := htmlToSections("<p>Just one paragraph.</p>")
	if len(sections) != 1 {
		t.Fatalf("sections: want=1 got=%d", len(sections))
	}
	if sections[0].Heading != "" || sections[0].Content != "Just one paragraph." {
		t.Fatalf("got %+v", sections[0])
	}
}
