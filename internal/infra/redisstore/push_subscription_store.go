package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"github.com/redis/go-redis/v9"
)

// PushSubscriptionStore は購読情報を1つのハッシュ（endpoint → JSON）に置く。
type PushSubscriptionStore struct {
	client *redis.Client
	key    string
}

func NewPushSubscriptionStore(client *redis.Client, serviceName string) *PushSubscriptionStore {
	return &PushSubscriptionStore{
		client: client,
		key:    fmt.Sprintf("%s:push:subscriptions", serviceName),
	}
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func (s *PushSubscriptionStore) Save(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, sub.Endpoint, data).Err()
}

func (s *PushSubscriptionStore) ListByRole(ctx context.Context, role model.SubscriberRole) ([]model.PushSubscription, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.PushSubscription, 0, len(all))
	for _, raw := range all {
		var sub model.PushSubscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			// 壊れたエントリは飛ばす
			continue
		}
		if role != "" && sub.Role != role {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (s *PushSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	n, err := s.client.HDel(ctx, s.key, endpoint).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *PushSubscriptionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
