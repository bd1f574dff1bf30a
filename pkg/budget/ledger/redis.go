package ledger

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis instance, making one budget
// visible to every process in a distributed call chain. Each bucket is a
// Redis hash with "remaining" and "limit" fields. The multi-key burn runs
// as a single Lua script, so it is atomic across all buckets and across
// all callers: Redis executes scripts serially.
type RedisStore struct {
	client    goredis.Cmdable
	keyPrefix string
}

// RedisOption configures RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the Redis key prefix (default "janus:ledger:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.keyPrefix = prefix }
}

// NewRedisStore creates a Redis-backed ledger.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func NewRedisStore(client goredis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "janus:ledger:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) bucketKey(key string) string {
	return s.keyPrefix + key
}

// burnScript is a Lua script for the atomic multi-bucket burn.
// KEYS    = bucket hash keys
// ARGV[1] = cost
// ARGV[2] = mode ("halt" or "report_only")
// ARGV[2+i] = nominal limit for KEYS[i] (lazy creation)
//
// Returns a flat array: [authorized, rem1, lim1, rem2, lim2, ...].
// authorized is 1 when the burn was applied, 0 when rejected; balances are
// the post-burn values on success and the untouched values on rejection.
var burnScript = goredis.NewScript(`
local cost = tonumber(ARGV[1])
local mode = ARGV[2]

-- Lazy creation at remaining = limit
for i, key in ipairs(KEYS) do
    if redis.call("EXISTS", key) == 0 then
        local limit = ARGV[2 + i]
        redis.call("HSET", key, "remaining", limit, "limit", limit)
    end
end

local authorized = 1
if mode == "halt" then
    for i, key in ipairs(KEYS) do
        local rem = tonumber(redis.call("HGET", key, "remaining"))
        if rem < cost then
            authorized = 0
            break
        end
    end
end

local out = {authorized}
for i, key in ipairs(KEYS) do
    if authorized == 1 then
        out[#out + 1] = redis.call("HINCRBYFLOAT", key, "remaining", -cost)
    else
        out[#out + 1] = redis.call("HGET", key, "remaining")
    end
    out[#out + 1] = redis.call("HGET", key, "limit")
end
return out
`)

// topupScript atomically credits one bucket's remaining and limit.
// KEYS[1] = bucket hash key
// ARGV[1] = amount
// ARGV[2] = nominal limit (lazy creation)
//
// Returns [remaining, limit] after the credit.
var topupScript = goredis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
    redis.call("HSET", key, "remaining", ARGV[2], "limit", ARGV[2])
end
local rem = redis.call("HINCRBYFLOAT", key, "remaining", ARGV[1])
local lim = redis.call("HINCRBYFLOAT", key, "limit", ARGV[1])
return {rem, lim}
`)

// AuthorizeAndBurn atomically checks and decrements every bucket in refs.
func (s *RedisStore) AuthorizeAndBurn(ctx context.Context, refs []Ref, cost float64, mode Mode) (*BurnResult, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: cost %v", ErrInvalidAmount, cost)
	}

	keys := make([]string, len(refs))
	argv := make([]interface{}, 0, len(refs)+2)
	argv = append(argv, formatAmount(cost), string(mode))
	for i, ref := range refs {
		keys[i] = s.bucketKey(ref.Key)
		argv = append(argv, formatAmount(ref.Limit))
	}

	raw, err := burnScript.Run(ctx, s.client, keys, argv...).Slice()
	if err != nil {
		return nil, Unavailable("authorize", err)
	}
	if len(raw) != 1+2*len(refs) {
		return nil, Unavailable("authorize", fmt.Errorf("unexpected script result length %d", len(raw)))
	}

	authorized, err := parseFlag(raw[0])
	if err != nil {
		return nil, Unavailable("authorize", err)
	}

	entries := make([]Entry, len(refs))
	for i, ref := range refs {
		remaining, err := parseAmount(raw[1+2*i])
		if err != nil {
			return nil, Unavailable("authorize", err)
		}
		limit, err := parseAmount(raw[2+2*i])
		if err != nil {
			return nil, Unavailable("authorize", err)
		}
		entries[i] = Entry{Key: ref.Key, Remaining: remaining, Limit: limit}
	}

	return &BurnResult{Authorized: authorized, Entries: entries}, nil
}

// Topup adds amount to both remaining and limit of one bucket.
func (s *RedisStore) Topup(ctx context.Context, ref Ref, amount float64) (Entry, error) {
	if amount < 0 {
		return Entry{}, fmt.Errorf("%w: topup %v", ErrInvalidAmount, amount)
	}

	raw, err := topupScript.Run(ctx, s.client,
		[]string{s.bucketKey(ref.Key)},
		formatAmount(amount), formatAmount(ref.Limit),
	).Slice()
	if err != nil {
		return Entry{}, Unavailable("topup", err)
	}
	if len(raw) != 2 {
		return Entry{}, Unavailable("topup", fmt.Errorf("unexpected script result length %d", len(raw)))
	}

	remaining, err := parseAmount(raw[0])
	if err != nil {
		return Entry{}, Unavailable("topup", err)
	}
	limit, err := parseAmount(raw[1])
	if err != nil {
		return Entry{}, Unavailable("topup", err)
	}

	return Entry{Key: ref.Key, Remaining: remaining, Limit: limit}, nil
}

// Snapshot returns current balances without burning or creating hashes.
func (s *RedisStore) Snapshot(ctx context.Context, refs []Ref) ([]Entry, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.SliceCmd, len(refs))
	for i, ref := range refs {
		cmds[i] = pipe.HMGet(ctx, s.bucketKey(ref.Key), "remaining", "limit")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, Unavailable("snapshot", err)
	}

	out := make([]Entry, len(refs))
	for i, ref := range refs {
		vals := cmds[i].Val()
		if len(vals) != 2 || vals[0] == nil {
			out[i] = Entry{Key: ref.Key, Remaining: ref.Limit, Limit: ref.Limit}
			continue
		}
		remaining, err := parseAmount(vals[0])
		if err != nil {
			return nil, Unavailable("snapshot", err)
		}
		limit, err := parseAmount(vals[1])
		if err != nil {
			return nil, Unavailable("snapshot", err)
		}
		out[i] = Entry{Key: ref.Key, Remaining: remaining, Limit: limit}
	}
	return out, nil
}

// List scans for all entries whose key starts with prefix.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	pattern := s.keyPrefix + prefix + "*"

	var out []Entry
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, Unavailable("list", err)
		}
		for _, key := range keys {
			vals, err := s.client.HMGet(ctx, key, "remaining", "limit").Result()
			if err != nil {
				return nil, Unavailable("list", err)
			}
			if len(vals) != 2 || vals[0] == nil {
				continue
			}
			remaining, err := parseAmount(vals[0])
			if err != nil {
				return nil, Unavailable("list", err)
			}
			limit, err := parseAmount(vals[1])
			if err != nil {
				return nil, Unavailable("list", err)
			}
			out = append(out, Entry{Key: key[len(s.keyPrefix):], Remaining: remaining, Limit: limit})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// Close is a no-op; the caller owns the Redis client's lifecycle.
func (s *RedisStore) Close() error {
	return nil
}

// formatAmount renders a float without exponent notation so Lua's tonumber
// and HINCRBYFLOAT parse it exactly.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseAmount(v interface{}) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

func parseFlag(v interface{}) (bool, error) {
	switch x := v.(type) {
	case int64:
		return x == 1, nil
	case string:
		return x == "1", nil
	default:
		return false, fmt.Errorf("unexpected flag type %T", v)
	}
}
