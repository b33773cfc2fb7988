package payrollconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	payrollconfigerrors "go-payroll/internal/payrollconfig/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	RuleSetKeyPrefix  = "payroll:config:"
	DefaultRuleSetTTL = 10 * time.Minute
)

func GetRuleSetKey(companyID string) string {
	return RuleSetKeyPrefix + companyID
}

// Provider serves the approved rule set of a company.
type Provider interface {
	ApprovedRuleSet(ctx context.Context, companyID string) (RuleSet, error)
	Invalidate(ctx context.Context, companyID string) error
}

type cachedProvider struct {
	repo   Repository
	rdb    *redis.Client
	ttl    time.Duration
	sf     *singleflight.Group
	logger *zap.Logger
}

// NewCachedProvider reads through redis when rdb is set. Concurrent misses
// for the same company share one database load.
func NewCachedProvider(repo Repository, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Provider {
	l := zap.L().Named("payrollconfig.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payrollconfig.cache")
	}
	if ttl <= 0 {
		ttl = DefaultRuleSetTTL
	}
	return &cachedProvider{
		repo:   repo,
		rdb:    rdb,
		ttl:    ttl,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (p *cachedProvider) ApprovedRuleSet(ctx context.Context, companyID string) (RuleSet, error) {
	cacheKey := GetRuleSetKey(companyID)

	if p.rdb != nil {
		cached, err := p.rdb.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var set RuleSet
			if json.Unmarshal([]byte(cached), &set) == nil {
				return set, nil
			}
			p.logger.Warn("discarding undecodable payroll config cache", zap.String("key", cacheKey))
		case !errors.Is(err, redis.Nil):
			p.logger.Warn("payroll config cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	v, err, _ := p.sf.Do(cacheKey, func() (interface{}, error) {
		set, err := p.repo.FindApprovedRuleSet(ctx, companyID)
		if err != nil {
			return nil, err
		}

		if p.rdb != nil {
			if payload, err := json.Marshal(set); err == nil {
				if err := p.rdb.Set(ctx, cacheKey, string(payload), p.ttl).Err(); err != nil {
					p.logger.Warn("payroll config cache write failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}

		return set, nil
	})
	if err != nil {
		p.logger.Error("load approved payroll config failed", zap.String("company_id", companyID), zap.Error(err))
		return RuleSet{}, fmt.Errorf("load approved payroll config: %w", errors.Join(payrollconfigerrors.ErrConfigUnavailable, err))
	}

	return v.(RuleSet), nil
}

func (p *cachedProvider) Invalidate(ctx context.Context, companyID string) error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Del(ctx, GetRuleSetKey(companyID)).Err()
}
