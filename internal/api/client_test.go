package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"coined-client/internal/portaltest"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(domain.Identity{ID: "stu-1"})
	}))
	defer srv.Close()

	tokens := &portaltest.MemoryTokens{}
	_ = tokens.Save(context.Background(), "tok-123")
	client := api.NewClient(srv.URL, tokens, 0)

	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("me: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestNoHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(domain.Identity{})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, &portaltest.MemoryTokens{}, 0)
	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("me: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
}

func TestServerMessageSurfacesInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Insufficient coins"})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, &portaltest.MemoryTokens{}, 0)
	_, err := client.AdjustCoins(context.Background(), "stu-1", api.CoinAdjustment{Amount: 99, Type: domain.TxSpend})

	var reqErr *domain.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusBadRequest || reqErr.Message != "Insufficient coins" {
		t.Fatalf("unexpected error %+v", reqErr)
	}
}

func TestUnauthorizedBecomesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, &portaltest.MemoryTokens{}, 0)
	_, err := client.Me(context.Background())

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "token expired" {
		t.Fatalf("message lost: %+v", authErr)
	}
}
