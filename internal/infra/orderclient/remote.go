package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
)

// レスポンスの読み込み上限
const maxResponseBytes = 1 << 20

// RemoteStore は外部の注文サービスに注文を転送する階層。
// 通信エラー・タイムアウト・非2xxはすべて ErrTierUnavailable にまとめる。
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

func NewRemoteStore(baseURL string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *RemoteStore) Name() string  { return "remote" }
func (s *RemoteStore) Durable() bool { return true }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (s *RemoteStore) Create(ctx context.Context, order model.Order) (model.Order, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return model.Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return model.Order{}, fmt.Errorf("%w: read body: %w", repo.ErrTierUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return model.Order{}, repo.ErrDuplicateOrderNumber
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return model.Order{}, fmt.Errorf("%w: status %d", repo.ErrTierUnavailable, resp.StatusCode)
	}

	// 2xxなら送った注文を正とする。応答本文の状態や形式は採用しない
	return order.Clone(), nil
}

func (s *RemoteStore) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/orders/"+url.PathEscape(orderNumber), nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: read body: %w", repo.ErrTierUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.Order{}, repo.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return model.Order{}, fmt.Errorf("%w: status %d", repo.ErrTierUnavailable, resp.StatusCode)
	}

	o, ok := decodeOrder(raw)
	if !ok || o.OrderNumber != orderNumber || len(o.Items) == 0 {
		return model.Order{}, fmt.Errorf("%w: malformed order response", repo.ErrTierUnavailable)
	}
	return o, nil
}

// {success, data:{order}} / {success, data:<order>} / <order> のどれでも読む
func decodeOrder(raw []byte) (model.Order, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.Order{}, false
	}

	payload := raw
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data

		var wrapped struct {
			Order *model.Order `json:"order"`
		}
		if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.Order != nil && wrapped.Order.OrderNumber != "" {
			return *wrapped.Order, true
		}
	}

	var o model.Order
	if err := json.Unmarshal(payload, &o); err != nil || o.OrderNumber == "" {
		return model.Order{}, false
	}
	return o, true
}
