package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Redis is a SET NX PX lock shared by every host pointing at the same
// Redis. The TTL bounds how long a crashed holder blocks others.
type Redis struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	token  func() string
	logger *zap.Logger
}

// NewRedis creates a Redis lock on key.
func NewRedis(client redis.Cmdable, key string, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, key: key, ttl: ttl, token: uuid.NewString, logger: logger}
}

// Acquire sets the lock key or fails with core.ErrLedgerLocked.
func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	token := r.token()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring redis lock %s: %w", r.key, err)
	}
	if !ok {
		return nil, core.WrapError(core.ErrLedgerLocked, fmt.Errorf("redis key %s is held", r.key))
	}

	return func() {
		// the caller's ctx may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.Eval(ctx, releaseScript, []string{r.key}, token).Err(); err != nil {
			r.logger.Warn("releasing redis lock failed", zap.String("key", r.key), zap.Error(err))
		}
	}, nil
}
