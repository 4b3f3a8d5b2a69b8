package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// newTestGate создаёт клиент, направленный на тестовый сервер
func newTestGate(t *testing.T, handler http.Handler) (*Gate, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGate("test-key", "test-secret", time.Second, 2*time.Second)
	g.baseURL = srv.URL
	return g, srv
}

// ============================================================
// Signature Tests
// ============================================================

func TestSignSortedParams(t *testing.T) {
	g := NewGate("key", "secret", 0, time.Second)

	params := url.Values{}
	params.Set("side", "buy")
	params.Set("amount", "1.5")
	params.Set("currency_pair", "BTC_USDT")

	// Ожидаемая подпись: HMAC-SHA512 от параметров в лексикографическом
	// порядке ключей
	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write([]byte("amount=1.5&currency_pair=BTC_USDT&side=buy"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := g.sign(params); got != want {
		t.Errorf("sign() = %s, want %s", got, want)
	}
}

func TestSignDeterministic(t *testing.T) {
	g := NewGate("key", "secret", 0, time.Second)

	// Порядок добавления параметров не должен влиять на подпись
	a := url.Values{}
	a.Set("time", "1700000000")
	a.Set("currency_pair", "ETH_USDT")

	b := url.Values{}
	b.Set("currency_pair", "ETH_USDT")
	b.Set("time", "1700000000")

	if g.sign(a) != g.sign(b) {
		t.Error("signature depends on parameter insertion order")
	}
}

func TestSignDependsOnSecret(t *testing.T) {
	params := url.Values{}
	params.Set("time", "1700000000")

	g1 := NewGate("key", "secret-one", 0, time.Second)
	g2 := NewGate("key", "secret-two", 0, time.Second)

	if g1.sign(params) == g2.sign(params) {
		t.Error("different secrets produced identical signatures")
	}
}

// ============================================================
// FetchTickers Tests
// ============================================================

func TestFetchTickers(t *testing.T) {
	g, _ := newTestGate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != gateTickersPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// Публичный endpoint не должен подписываться
		if r.Header.Get("SIGN") != "" {
			t.Error("tickers request must not be signed")
		}
		w.Write([]byte(`[
			{"currency_pair":"ETH_USDT","highest_bid":"1999","lowest_ask":"2000"},
			{"currency_pair":"DEAD_USDT","highest_bid":"","lowest_ask":""}
		]`))
	}))

	tickers, err := g.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("FetchTickers() failed: %v", err)
	}

	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2", len(tickers))
	}
	if tickers[0].Pair != "ETH_USDT" || tickers[0].Bid != 1999 || tickers[0].Ask != 2000 {
		t.Errorf("unexpected ticker: %+v", tickers[0])
	}
	// Пустые цены декодируются в ноль, а не в ошибку
	if tickers[1].Bid != 0 || tickers[1].Ask != 0 {
		t.Errorf("empty prices should decode to zero, got %+v", tickers[1])
	}
}

// ============================================================
// PlaceOrder Tests
// ============================================================

func TestPlaceOrder(t *testing.T) {
	var gotQuery url.Values

	g, _ := newTestGate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotQuery = r.URL.Query()

		// Сервер пересчитывает подпись по тому же алгоритму
		if r.Header.Get("KEY") != "test-key" {
			t.Errorf("KEY header = %q", r.Header.Get("KEY"))
		}
		if r.Header.Get("Timestamp") == "" {
			t.Error("Timestamp header missing")
		}
		if r.Header.Get("SIGN") == "" {
			t.Error("SIGN header missing")
		}

		w.Write([]byte(`{"id":"12345"}`))
	}))

	id, err := g.PlaceOrder(context.Background(), OrderRequest{
		Pair:     "ETH_USDT",
		Side:     SideBuy,
		Quantity: 0.5,
		Price:    2000,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() failed: %v", err)
	}
	if id != "12345" {
		t.Errorf("order id = %q, want 12345", id)
	}

	// Дефолты limit/ioc
	if gotQuery.Get("type") != "limit" {
		t.Errorf("type = %q, want limit", gotQuery.Get("type"))
	}
	if gotQuery.Get("timeInForce") != "ioc" {
		t.Errorf("timeInForce = %q, want ioc", gotQuery.Get("timeInForce"))
	}
	if gotQuery.Get("currency_pair") != "ETH_USDT" || gotQuery.Get("side") != "buy" {
		t.Errorf("unexpected query: %v", gotQuery)
	}
	if gotQuery.Get("amount") != "0.5" || gotQuery.Get("price") != "2000" {
		t.Errorf("unexpected amount/price: %v", gotQuery)
	}
	if gotQuery.Get("time") == "" {
		t.Error("signed request must carry time parameter")
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	g, _ := newTestGate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"label":"BALANCE_NOT_ENOUGH","message":"not enough balance"}`))
	}))

	_, err := g.PlaceOrder(context.Background(), OrderRequest{
		Pair: "ETH_USDT", Side: SideBuy, Quantity: 1000, Price: 2000,
	})
	if err == nil {
		t.Fatal("expected rejection error, got nil")
	}

	var exchErr *ExchangeError
	if !errors.As(err, &exchErr) {
		t.Fatalf("error %v is not *ExchangeError", err)
	}
	if exchErr.Code != "BALANCE_NOT_ENOUGH" {
		t.Errorf("code = %q, want BALANCE_NOT_ENOUGH", exchErr.Code)
	}
}

// ============================================================
// GetOrderStatus / FetchBalances Tests
// ============================================================

func TestGetOrderStatus(t *testing.T) {
	g, _ := newTestGate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != gateOrdersPath+"/777" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("currency_pair") != "BTC_ETH" {
			t.Errorf("currency_pair = %q", r.URL.Query().Get("currency_pair"))
		}
		w.Write([]byte(`{"status":"closed","filled_total":"0.125"}`))
	}))

	status, err := g.GetOrderStatus(context.Background(), "BTC_ETH", "777")
	if err != nil {
		t.Fatalf("GetOrderStatus() failed: %v", err)
	}
	if status.Status != OrderStatusClosed {
		t.Errorf("status = %q, want closed", status.Status)
	}
	if status.FilledQuantity != 0.125 {
		t.Errorf("filled = %v, want 0.125", status.FilledQuantity)
	}
}

func TestFetchBalances(t *testing.T) {
	g, _ := newTestGate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SIGN") == "" {
			t.Error("accounts request must be signed")
		}
		w.Write([]byte(`[
			{"currency":"USDT","available":"1000.5"},
			{"currency":"GT","available":"2"}
		]`))
	}))

	balances, err := g.FetchBalances(context.Background())
	if err != nil {
		t.Fatalf("FetchBalances() failed: %v", err)
	}
	if balances["USDT"] != 1000.5 {
		t.Errorf("USDT = %v, want 1000.5", balances["USDT"])
	}
	if balances["GT"] != 2 {
		t.Errorf("GT = %v, want 2", balances["GT"])
	}
}

func TestNetworkErrorIsNotExchangeError(t *testing.T) {
	g := NewGate("key", "secret", 0, 100*time.Millisecond)
	g.baseURL = "http://127.0.0.1:1" // закрытый порт

	_, err := g.FetchTickers(context.Background())
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}

	var exchErr *ExchangeError
	if errors.As(err, &exchErr) {
		t.Errorf("transport failure must not be *ExchangeError: %v", err)
	}
}
