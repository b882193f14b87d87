package main

import (
	"context"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/config"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/db"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/memstore"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/orderclient"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/redisstore"
	infraRepo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/repository"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

const migrateRetryInterval = 15 * time.Second

// 保存先一式。注文の階層と、在庫・購読の保存先。
type stores struct {
	tiers      []repo.OrderStore
	txManager  repo.TransactionManager
	products   repo.ProductRepository
	pushSubs   repo.PushSubscriptionRepository
	newsletter repo.NewsletterRepository
	customers  repo.CustomerDirectory

	// 起動時にDBへ届いて在庫・購読をDBで扱っているか
	database bool
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStores は設定から保存先を組み立てる。
// DBの注文階層は起動時の疎通に関係なく常に並べる（失敗は1件ごとに次の階層へ）。
// 起動時にDBへ届かなければ、在庫と購読だけメモリで動かし、マイグレーションは裏で再試行する。
func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) *stores {
	st := &stores{}
	memOrders := memstore.NewOrderStore()

	//リモート階層（設定されていれば最優先）
	if cfg.OrderServiceURL != "" {
		st.tiers = append(st.tiers, orderclient.NewRemoteStore(cfg.OrderServiceURL, cfg.OrderServiceTimeout))
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		logger.Error("database misconfigured, durable tier disabled", zap.Error(err))
	} else {
		st.closers = append(st.closers, func() { _ = db.Close(gormDB) })

		orders := infraRepo.NewOrderGormRepository(gormDB, cfg.DBTimeout)
		st.tiers = append(st.tiers, orders)

		err = db.Ping(ctx, gormDB, cfg.DBTimeout)
		if err == nil {
			err = db.Migrate(ctx, gormDB)
		}
		if err == nil {
			st.database = true
			st.txManager = infraRepo.NewTxManagerGorm(gormDB)
			st.products = infraRepo.NewProductGormRepository(gormDB)
			st.pushSubs = infraRepo.NewPushSubscriptionRepository(gormDB)
			st.newsletter = infraRepo.NewNewsletterRepository(gormDB)
			st.customers = orders
		} else {
			logger.Warn("database unavailable, catalog and subscribers on in-memory stores", zap.Error(err))
			go func() {
				if err := db.RetryMigrate(ctx, gormDB, migrateRetryInterval, logger.Named("migrate")); err != nil {
					logger.Warn("background migration stopped", zap.Error(err))
				}
			}()
		}
	}

	if !st.database {
		catalog := memstore.NewCatalog()
		st.txManager = catalog
		st.products = catalog
		st.pushSubs = memstore.NewPushSubscriptionStore()
		st.newsletter = memstore.NewNewsletterStore()
		st.customers = memOrders
	}
	st.tiers = append(st.tiers, memOrders)

	if cfg.RedisAddr != "" {
		client := redisstore.NewClient(cfg.RedisAddr)
		store := redisstore.NewPushSubscriptionStore(client, serviceName)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, keeping default push subscription store", zap.Error(err))
			_ = client.Close()
		} else {
			st.pushSubs = store
			st.closers = append(st.closers, func() { _ = client.Close() })
		}
	}

	return st
}
