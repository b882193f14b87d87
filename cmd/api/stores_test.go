package main

import (
	"context"
	"testing"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/config"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dbDownConfig() config.Config {
	return config.Config{
		PostgresHost:        "127.0.0.1",
		PostgresPort:        1,
		PostgresUser:        "postgres",
		PostgresPassword:    "postgres",
		PostgresDB:          "app",
		PostgresSSLMode:     "disable",
		DBTimeout:           300 * time.Millisecond,
		OrderServiceTimeout: 300 * time.Millisecond,
	}
}

// 起動時にDBへ届かなくても注文階層にDBは残る
func TestBuildStores_DatabaseDownAtBoot_KeepsDurableTier(t *testing.T) {
	st := buildStores(context.Background(), dbDownConfig(), zap.NewNop())
	defer st.Close()

	chain := usecase.NewTierChain(st.tiers, zap.NewNop(), metrics.NewNop())
	assert.Equal(t, []string{"postgres", "memory"}, chain.TierNames())
	assert.False(t, st.database)
	assert.NotNil(t, st.txManager)
	assert.NotNil(t, st.products)

	// この呼び出しはDB階層で失敗し、メモリで受ける
	res, err := chain.Create(context.Background(), model.Order{
		OrderNumber: "GS00000001",
		Items:       []model.OrderItem{{ProductID: "p1", Quantity: 1}},
		Status:      model.OrderStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "memory", res.Tier)
	assert.False(t, res.Durable)
}

func TestBuildStores_RemoteFirst(t *testing.T) {
	cfg := dbDownConfig()
	cfg.OrderServiceURL = "http://127.0.0.1:1"

	st := buildStores(context.Background(), cfg, zap.NewNop())
	defer st.Close()

	chain := usecase.NewTierChain(st.tiers, zap.NewNop(), metrics.NewNop())
	assert.Equal(t, []string{"remote", "postgres", "memory"}, chain.TierNames())
}
