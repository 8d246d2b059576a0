package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFromRequestDefaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/orders", nil)

	params, err := FromRequest(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" || !params.Cursor.IsZero() {
		t.Fatalf("expected empty cursor, got %+v", params)
	}
}

func TestFromRequestClampsPageSize(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/orders?page_size=500", nil)

	params, err := FromRequest(req, Options{MaxPageSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.PageSize != 100 {
		t.Fatalf("expected clamped page size 100, got %d", params.PageSize)
	}
}

func TestFromRequestRejectsInvalidPageSize(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest("GET", "/api/v1/orders?page_size="+raw, nil)
		if _, err := FromRequest(req, Options{}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("page_size=%s: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		ID:        "ord_01HZX4",
	}

	token, err := EncodeToken(cursor)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	decoded, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) || decoded.ID != cursor.ID {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestEncodeTokenEmptyCursor(t *testing.T) {
	token, err := EncodeToken(Cursor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token for zero cursor, got %q", token)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"not-base64!!", "YWJjZA"} {
		if _, err := DecodeToken(raw); !errors.Is(err, ErrInvalidPageToken) {
			t.Fatalf("token %q: expected ErrInvalidPageToken, got %v", raw, err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/orders?page_token=%21%21", nil)
	if _, err := FromRequest(req, Options{}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken from request, got %v", err)
	}
}
