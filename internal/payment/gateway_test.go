package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCreateCheckout_Success(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout_sessions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_id" || pass != "key_secret" {
			t.Errorf("basic auth: got %s/%s", user, pass)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["order_id"] != orderID.String() {
			t.Errorf("order_id: got %s", body["order_id"])
		}
		if body["amount"] != "153.00" {
			t.Errorf("amount: got %s, want 153.00", body["amount"])
		}
		if body["currency"] != "INR" {
			t.Errorf("currency: got %s", body["currency"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CheckoutSession{
			Reference:   "pay_abc123",
			RedirectURL: "https://pay.example.com/s/abc123",
		})
	}))
	defer srv.Close()

	gw := NewHostedGateway(srv.URL, "key_id", "key_secret")
	session, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		OrderID:  orderID,
		Amount:   decimal.RequireFromString("153"),
		Currency: "INR",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Reference != "pay_abc123" {
		t.Errorf("reference: got %s", session.Reference)
	}
	if session.RedirectURL == "" {
		t.Error("expected redirect url")
	}
}

func TestCreateCheckout_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	gw := NewHostedGateway(srv.URL, "key_id", "key_secret")
	_, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		OrderID:  uuid.New(),
		Amount:   decimal.RequireFromString("153"),
		Currency: "INR",
	})
	if !errors.Is(err, ErrGatewayDeclined) {
		t.Fatalf("expected ErrGatewayDeclined, got: %v", err)
	}
}

func TestCreateCheckout_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewHostedGateway(srv.URL, "key_id", "key_secret")
	_, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		OrderID:  uuid.New(),
		Amount:   decimal.RequireFromString("153"),
		Currency: "INR",
	})
	if err == nil {
		t.Fatal("expected error on 5xx")
	}
	if errors.Is(err, ErrGatewayDeclined) {
		t.Error("5xx must not read as a decline")
	}
}

func TestCreateCheckout_MissingReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"redirect_url": "https://pay.example.com/s/x"}`))
	}))
	defer srv.Close()

	gw := NewHostedGateway(srv.URL, "key_id", "key_secret")
	_, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		OrderID:  uuid.New(),
		Amount:   decimal.RequireFromString("10"),
		Currency: "INR",
	})
	if err == nil {
		t.Fatal("expected error for response without reference")
	}
}
