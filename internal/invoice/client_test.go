package invoice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/darzi-studio/api/internal/domain"
)

func TestClientFetchServedDirectly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/v1/orders/ord_42/invoice/customer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>invoice</html>"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	body, err := client.Fetch(context.Background(), "ord_42", domain.InvoiceCustomer)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(string(body), "invoice") {
		t.Errorf("body = %q", body)
	}
}

func TestClientFetchFallsBackToGenerate(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("<html>generated</html>"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	body, err := client.Fetch(context.Background(), "ord_42", domain.InvoiceTailor)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(string(body), "generated") {
		t.Errorf("body = %q", body)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 2 || methods[0] != http.MethodGet || methods[1] != http.MethodPost {
		t.Errorf("methods = %v, want [GET POST]", methods)
	}
}

func TestClientFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Fetch(context.Background(), "ord_42", domain.InvoiceCustomer); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Fetch error = %v, want ErrUnavailable", err)
	}
}

func TestClientFetchValidatesArguments(t *testing.T) {
	client, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Fetch(context.Background(), " ", domain.InvoiceCustomer); err == nil {
		t.Error("expected error for blank order id")
	}
	if _, err := client.Fetch(context.Background(), "ord_42", "receipt"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Error("expected error for empty base URL")
	}
}
