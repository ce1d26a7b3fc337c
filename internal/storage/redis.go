package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	"talent-match-go/internal/types"
)

// ErrNotFound 缓存未命中
var ErrNotFound = redis.Nil

// Redis 键值存储适配器
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端并注册OpenTelemetry追踪钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis失败 (%s): %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Ping(ctx).Err()
}

// CandidateSetHash 计算候选人ID集合的哈希
// 先排序再哈希，保证同一集合不论顺序都命中同一缓存键
func CandidateSetHash(candidateIDs []string) string {
	sorted := make([]string, len(candidateIDs))
	copy(sorted, candidateIDs)
	sort.Strings(sorted)

	h := sha1.Sum([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h[:])
}

// CacheMatchResults 缓存一次匹配调用的结果，键为 (jobID, 候选人集合哈希)
func (r *Redis) CacheMatchResults(ctx context.Context, jobID string, candidateIDs []string, results []types.MatchResult, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("序列化匹配结果失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyMatchResult, jobID, CandidateSetHash(candidateIDs))
	return r.Client.Set(ctx, key, data, ttl).Err()
}

// GetCachedMatchResults 读取匹配结果缓存，未命中返回 (nil, false, nil)
func (r *Redis) GetCachedMatchResults(ctx context.Context, jobID string, candidateIDs []string) ([]types.MatchResult, bool, error) {
	if r.Client == nil {
		return nil, false, fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf(constants.KeyMatchResult, jobID, CandidateSetHash(candidateIDs))
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var results []types.MatchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("反序列化缓存的匹配结果失败: %w", err)
	}
	return results, true, nil
}

// SetJobDescriptionText 缓存岗位JD文本
func (r *Redis) SetJobDescriptionText(ctx context.Context, jobID, text string, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	key := fmt.Sprintf(constants.KeyJobDescriptionText, jobID)
	return r.Client.Set(ctx, key, text, ttl).Err()
}

// GetJobDescriptionText 读取JD文本缓存，未命中返回空串
func (r *Redis) GetJobDescriptionText(ctx context.Context, jobID string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	key := fmt.Sprintf(constants.KeyJobDescriptionText, jobID)
	text, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// AcquireMatchLock 获取岗位级匹配分布式锁
// 返回锁持有者标识；返回空串表示锁已被他人持有
func (r *Redis) AcquireMatchLock(ctx context.Context, jobID string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	lockKey := fmt.Sprintf(constants.KeyMatchLock, jobID)
	lockValue := uuid.NewString()

	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

// ReleaseMatchLock 释放匹配锁，使用Lua脚本保证只释放自己持有的锁
func (r *Redis) ReleaseMatchLock(ctx context.Context, jobID, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}

	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	lockKey := fmt.Sprintf(constants.KeyMatchLock, jobID)
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}
	return false, nil
}
