package registryclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registryclient"
)

func TestFetchPage_DecodesAndSanitizes(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/institutions" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total": 3, "next": 2, "items": [
			{"id": "edbo-1", "name": "<b>Kyiv</b> &amp; Co", "country": "ua", "website": "javascript:alert(1)", "status": "ACTIVE"},
			{"id": " edbo-2 ", "name": "Lviv", "national_code": "02071010", "website": "https://lpnu.ua"}
		]}`)
	}))
	defer srv.Close()

	c, err := registryclient.New(registryclient.Config{BaseURL: srv.URL + "/v1/", PageSize: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	page, err := c.FetchPage(context.Background(), "institutions", 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotQuery != "page=1&per_page=2" {
		t.Errorf("query: got %q, want %q", gotQuery, "page=1&per_page=2")
	}
	if page.Total != 3 || page.Next != 2 || len(page.Items) != 2 {
		t.Fatalf("page: got total=%d next=%d items=%d", page.Total, page.Next, len(page.Items))
	}
	first := page.Items[0]
	if first.Name != "Kyiv & Co" {
		t.Errorf("Name: got %q, want %q", first.Name, "Kyiv & Co")
	}
	if first.Country != "UA" || first.Status != "active" {
		t.Errorf("normalized: got country=%q status=%q", first.Country, first.Status)
	}
	if first.Website != "" {
		t.Errorf("Website: got %q, want it dropped", first.Website)
	}
	if page.Items[1].ExternalID != "edbo-2" || page.Items[1].Website != "https://lpnu.ua" {
		t.Errorf("second item: got %+v", page.Items[1])
	}
}

func TestFetchPage_LastPageHasNoNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 1, "next": null, "items": [{"id": "a", "name": "A"}]}`)
	}))
	defer srv.Close()

	c, _ := registryclient.New(registryclient.Config{BaseURL: srv.URL})
	page, err := c.FetchPage(context.Background(), "institutions", 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Next != 0 {
		t.Errorf("Next: got %d, want 0", page.Next)
	}
}

func TestFetchPage_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `upstream down`},
		{"malformed json", http.StatusOK, `{"total": `},
		{"missing total", http.StatusOK, `{"items": []}`},
		{"item without id", http.StatusOK, `{"total": 1, "items": [{"name": "x"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			c, _ := registryclient.New(registryclient.Config{BaseURL: srv.URL})
			_, err := c.FetchPage(context.Background(), "institutions", 1)
			if !errors.Is(err, apperr.UpstreamFailure) {
				t.Errorf("got %v, want UpstreamFailure", err)
			}
		})
	}
}

func TestFetchPage_ClientCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "tok-123", "token_type": "bearer", "expires_in": 3600}`)
	}))
	defer tokenSrv.Close()

	var gotAuth string
	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"total": 0, "items": []}`)
	}))
	defer dataSrv.Close()

	c, err := registryclient.New(registryclient.Config{
		BaseURL:      dataSrv.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "research-os",
		ClientSecret: "secret",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.FetchPage(context.Background(), "institutions", 1); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization: got %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := registryclient.New(registryclient.Config{BaseURL: "registry.local/api"}); err == nil {
		t.Error("expected error for a relative base url")
	}
}
