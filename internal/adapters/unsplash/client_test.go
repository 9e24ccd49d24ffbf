package unsplash_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/delonixservices/crm/internal/adapters/unsplash"
)

func TestSearchPhoto_FirstRegular(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "Paris,Rome" || q.Get("orientation") != "landscape" || q.Get("per_page") != "1" || q.Get("client_id") != "k" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = io.WriteString(w, `{"results":[{"urls":{"regular":"https://img/r.jpg","full":"https://img/f.jpg"}}]}`)
	}))
	defer ts.Close()

	u, err := unsplash.New(ts.URL, "k").SearchPhoto(context.Background(), "Paris,Rome")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if u != "https://img/r.jpg" {
		t.Fatalf("got %q", u)
	}
}

func TestSearchPhoto_NoKeyNoCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("must not call upstream without a key")
	}))
	defer ts.Close()

	u, err := unsplash.New(ts.URL, "").SearchPhoto(context.Background(), "Paris")
	if err != nil || u != "" {
		t.Fatalf("expected empty result, got %q %v", u, err)
	}
}

func TestSearchPhoto_Empty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))
	defer ts.Close()

	u, err := unsplash.New(ts.URL, "k").SearchPhoto(context.Background(), "Atlantis")
	if err != nil || u != "" {
		t.Fatalf("expected empty result, got %q %v", u, err)
	}
}
