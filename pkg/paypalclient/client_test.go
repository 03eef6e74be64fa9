package paypalclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newFakePayPal(t *testing.T, tokenStatus int, payoutHandler http.HandlerFunc) (*httptest.Server, *int64) {
	t.Helper()
	var tokenRequests int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenRequests, 1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v1/payments/payouts", payoutHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenRequests
}

func newTestClient(baseURL string) *Client {
	c := NewClient("sandbox", "client-id", "client-secret")
	c.BaseURL = baseURL
	return c
}

func TestSendPayout_ReturnsProviderBatchID(t *testing.T) {
	var gotAuth, gotReceiver, gotValue, gotCurrency string
	server, tokenRequests := newFakePayPal(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req payoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding payout request: %v", err)
		}
		if len(req.Items) == 1 {
			gotReceiver = req.Items[0].Receiver
			gotValue = req.Items[0].Amount.Value
			gotCurrency = req.Items[0].Amount.Currency
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"batch_header": map[string]interface{}{
				"payout_batch_id": "ABCD1234",
				"batch_status":    "PENDING",
			},
		})
	})

	client := newTestClient(server.URL)
	batchID, err := client.SendPayout(context.Background(), "winner@example.com", "8.00", "USD", "sender-1")
	if err != nil {
		t.Fatalf("SendPayout returned error: %v", err)
	}
	if batchID != "ABCD1234" {
		t.Fatalf("expected batch id ABCD1234, got %q", batchID)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotReceiver != "winner@example.com" || gotValue != "8.00" || gotCurrency != "USD" {
		t.Errorf("unexpected payout item: receiver=%q value=%q currency=%q", gotReceiver, gotValue, gotCurrency)
	}

	// Second payout reuses the cached token.
	if _, err := client.SendPayout(context.Background(), "winner@example.com", "1.00", "USD", "sender-2"); err != nil {
		t.Fatalf("second SendPayout returned error: %v", err)
	}
	if got := atomic.LoadInt64(tokenRequests); got != 1 {
		t.Fatalf("expected 1 token request, got %d", got)
	}
}

func TestSendPayout_TokenRejectionIsAuthenticationFailure(t *testing.T) {
	server, _ := newFakePayPal(t, http.StatusUnauthorized, func(w http.ResponseWriter, r *http.Request) {
		t.Error("payout endpoint must not be reached without a token")
	})

	client := newTestClient(server.URL)
	_, err := client.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if KindOf(err) != KindAuthentication {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestSendPayout_ReceiverRejectionIsInvalidReceiver(t *testing.T) {
	server, _ := newFakePayPal(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "RECEIVER_UNREGISTERED",
			"message": "Receiver is unregistered",
		})
	})

	client := newTestClient(server.URL)
	_, err := client.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if KindOf(err) != KindInvalidReceiver {
		t.Fatalf("expected invalid receiver failure, got %v", err)
	}

	var pe *Error
	if !errors.As(err, &pe) || pe.Name != "RECEIVER_UNREGISTERED" {
		t.Fatalf("expected provider error name preserved, got %v", err)
	}
}

func TestSendPayout_ServerErrorIsTransient(t *testing.T) {
	server, _ := newFakePayPal(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient(server.URL)
	_, err := client.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if KindOf(err) != KindTransient {
		t.Fatalf("expected transient failure, got %v", err)
	}
}

func TestSendPayout_TransportFailureIsTransient(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if KindOf(err) != KindTransient {
		t.Fatalf("expected transient failure, got %v", err)
	}
}

func TestNewClient_SelectsBaseURLByMode(t *testing.T) {
	if got := NewClient("live", "id", "secret").BaseURL; got != liveBaseURL {
		t.Errorf("live mode: expected %q, got %q", liveBaseURL, got)
	}
	if got := NewClient("sandbox", "id", "secret").BaseURL; got != sandboxBaseURL {
		t.Errorf("sandbox mode: expected %q, got %q", sandboxBaseURL, got)
	}
}

func TestSimulated_IsDeterministic(t *testing.T) {
	sim := Simulated{}

	first, err := sim.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if err != nil {
		t.Fatalf("Simulated.SendPayout returned error: %v", err)
	}
	second, _ := sim.SendPayout(context.Background(), "a@b.com", "8.00", "USD", "sender-1")
	if first != second {
		t.Fatalf("expected deterministic batch id, got %q then %q", first, second)
	}
	if first != "SIMULATED-SENDER-1" {
		t.Fatalf("unexpected batch id %q", first)
	}
}
