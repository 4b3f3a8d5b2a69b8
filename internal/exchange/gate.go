package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	gateBaseURL      = "https://api.gateio.ws/api/v4"
	gateTickersPath  = "/spot/tickers"
	gateOrdersPath   = "/spot/orders"
	gateAccountsPath = "/spot/accounts"
)

// json - drop-in замена encoding/json без рефлексии в горячем пути
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Gate реализует Gateway для спотового API Gate.io v4.
//
// Аутентификация: HMAC-SHA512 над отсортированным набором параметров
// запроса ("k=v" через "&"), заголовки KEY / SIGN / Timestamp.
// Биржа отклоняет запросы вне допуска по времени, поэтому к Timestamp
// добавляется фиксированный сдвиг вперёд (clockOffset).
type Gate struct {
	apiKey    string
	secretKey string

	baseURL        string
	clockOffset    time.Duration
	requestTimeout time.Duration

	httpClient *http.Client
}

// NewGate создаёт клиент Gate.io.
// Использует глобальный HTTP клиент с connection pooling.
func NewGate(apiKey, secretKey string, clockOffset, requestTimeout time.Duration) *Gate {
	return &Gate{
		apiKey:         apiKey,
		secretKey:      secretKey,
		baseURL:        gateBaseURL,
		clockOffset:    clockOffset,
		requestTimeout: requestTimeout,
		httpClient:     GetGlobalHTTPClient().GetClient(),
	}
}

// timestamp возвращает unix-время со сдвигом clockOffset для заголовка Timestamp
func (g *Gate) timestamp() string {
	return strconv.FormatInt(time.Now().Add(g.clockOffset).Unix(), 10)
}

// sign создаёт HMAC-SHA512 подпись отсортированного набора параметров
func (g *Gate) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params.Get(k))
	}
	payload := strings.Join(parts, "&")

	h := hmac.New(sha512.New, []byte(g.secretKey))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет HTTP запрос к API.
// Для подписанных запросов добавляет параметр time и заголовки аутентификации.
func (g *Gate) doRequest(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	var ts, sig string
	if signed {
		ts = g.timestamp()
		params.Set("time", ts)
		sig = g.sign(params)
	}

	reqURL := g.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		req.Header.Set("KEY", g.apiKey)
		req.Header.Set("SIGN", sig)
		req.Header.Set("Timestamp", ts)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gate: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gate: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Gate.io отдаёт {"label": "...", "message": "..."} при ошибках
		var apiErr struct {
			Label   string `json:"label"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, &ExchangeError{
			Exchange: "gate",
			Code:     apiErr.Label,
			Message:  apiErr.Message,
		}
	}

	return body, nil
}

// FetchTickers получает верх стакана для всех спотовых пар (публичный endpoint)
func (g *Gate) FetchTickers(ctx context.Context) ([]Ticker, error) {
	body, err := g.doRequest(ctx, http.MethodGet, gateTickersPath, nil, false)
	if err != nil {
		return nil, err
	}

	var resp []struct {
		CurrencyPair string `json:"currency_pair"`
		HighestBid   string `json:"highest_bid"`
		LowestAsk    string `json:"lowest_ask"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gate: decode tickers: %w", err)
	}

	tickers := make([]Ticker, 0, len(resp))
	for _, t := range resp {
		// Пустые цены (неликвидная пара) декодируются в ноль
		bid, _ := strconv.ParseFloat(t.HighestBid, 64)
		ask, _ := strconv.ParseFloat(t.LowestAsk, 64)
		tickers = append(tickers, Ticker{
			Pair: t.CurrencyPair,
			Bid:  bid,
			Ask:  ask,
		})
	}

	return tickers, nil
}

// PlaceOrder размещает лимитный ордер на спотовом аккаунте
func (g *Gate) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	orderType := req.Type
	if orderType == "" {
		orderType = "limit"
	}
	tif := req.TimeInForce
	if tif == "" {
		tif = "ioc"
	}

	params := url.Values{}
	params.Set("currency_pair", req.Pair)
	params.Set("type", orderType)
	params.Set("account", "spot")
	params.Set("side", req.Side)
	params.Set("amount", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	params.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	params.Set("timeInForce", tif)

	body, err := g.doRequest(ctx, http.MethodPost, gateOrdersPath, params, true)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gate: decode order: %w", err)
	}
	if resp.ID == "" {
		return "", &ExchangeError{Exchange: "gate", Message: "order response without id"}
	}

	return resp.ID, nil
}

// GetOrderStatus возвращает статус и исполненный объём ордера
func (g *Gate) GetOrderStatus(ctx context.Context, pair, orderID string) (*OrderStatus, error) {
	params := url.Values{}
	params.Set("currency_pair", pair)

	body, err := g.doRequest(ctx, http.MethodGet, gateOrdersPath+"/"+orderID, params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status      string `json:"status"`
		FilledTotal string `json:"filled_total"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gate: decode order status: %w", err)
	}

	filled, _ := strconv.ParseFloat(resp.FilledTotal, 64)
	return &OrderStatus{
		Status:         resp.Status,
		FilledQuantity: filled,
	}, nil
}

// FetchBalances возвращает доступные балансы спотового аккаунта
func (g *Gate) FetchBalances(ctx context.Context) (map[string]float64, error) {
	body, err := g.doRequest(ctx, http.MethodGet, gateAccountsPath, nil, true)
	if err != nil {
		return nil, err
	}

	var resp []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gate: decode accounts: %w", err)
	}

	balances := make(map[string]float64, len(resp))
	for _, acct := range resp {
		avail, _ := strconv.ParseFloat(acct.Available, 64)
		balances[acct.Currency] = avail
	}

	return balances, nil
}
