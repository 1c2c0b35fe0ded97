package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClientKey(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), key
}

func TestSignRequestMessage(t *testing.T) {
	pemBytes, key := testClientKey(t)

	c := NewClient("", "key-id", 5*time.Second)
	if err := c.SetRSAPrivateKey(pemBytes); err != nil {
		t.Fatalf("SetRSAPrivateKey() error = %v", err)
	}

	// The signed message must cover the full URL path including the API
	// prefix and must not include the query string.
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/markets?limit=100&status=open", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if err := c.signRequest(req); err != nil {
		t.Fatalf("signRequest() error = %v", err)
	}

	if got := req.Header.Get("KALSHI-ACCESS-KEY"); got != "key-id" {
		t.Errorf("KALSHI-ACCESS-KEY = %q, want key-id", got)
	}
	ts := req.Header.Get("KALSHI-ACCESS-TIMESTAMP")
	if ts == "" {
		t.Fatal("missing KALSHI-ACCESS-TIMESTAMP header")
	}
	sig, err := base64.StdEncoding.DecodeString(req.Header.Get("KALSHI-ACCESS-SIGNATURE"))
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}

	message := ts + http.MethodGet + "/trade-api/v2/markets"
	hash := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		t.Errorf("signature does not verify over %q: %v", message, err)
	}
}

func TestFetchMarket(t *testing.T) {
	market := KalshiMarket{
		Ticker:      "KXNFLGAME-25SEP07",
		EventTicker: "KXNFLGAME",
		Title:       "Chiefs beat Jaguars",
		Status:      "active",
		YesAsk:      55,
		NoAsk:       47,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade-api/v2/markets/KXNFLGAME-25SEP07" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"market": market})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/trade-api/v2", "", 5*time.Second)
	got, err := c.FetchMarket(context.Background(), "KXNFLGAME-25SEP07")
	if err != nil {
		t.Fatalf("FetchMarket() error = %v", err)
	}
	if got.MarketID != "KXNFLGAME-25SEP07" || got.Question != "Chiefs beat Jaguars" {
		t.Errorf("got market %q / %q", got.MarketID, got.Question)
	}
}

func TestFetchMarketInheritsEventTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trade-api/v2/markets/KXGAME-1":
			json.NewEncoder(w).Encode(map[string]any{"market": KalshiMarket{
				Ticker:      "KXGAME-1",
				EventTicker: "KXGAME",
				Status:      "active",
				YesAsk:      60,
				NoAsk:       42,
			}})
		case "/trade-api/v2/events/KXGAME":
			json.NewEncoder(w).Encode(map[string]any{
				"event": KalshiEvent{EventTicker: "KXGAME", Title: "Bills beat Dolphins"},
				"markets": []KalshiMarket{{
					Ticker:      "KXGAME-1",
					EventTicker: "KXGAME",
					Status:      "active",
					YesAsk:      60,
					NoAsk:       42,
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/trade-api/v2", "", 5*time.Second)
	got, err := c.FetchMarket(context.Background(), "KXGAME-1")
	if err != nil {
		t.Fatalf("FetchMarket() error = %v", err)
	}
	if got.Question != "Bills beat Dolphins" {
		t.Errorf("Question = %q, want the event title", got.Question)
	}
}
