// Package quota enforces the per-user daily scan quota. Counters live in
// Redis, bucketed by subject and UTC calendar day, and expire on their own
// via a TTL set on first write.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/logger"
)

// bucketTTLSeconds is the expiry applied to a day bucket on first write.
const bucketTTLSeconds = int(domain.QuotaResetWindow / time.Second)

// checkAndConsumeScript performs the read-compare-increment sequence as one
// atomic unit on the Redis server. A bucket at or over the limit is never
// mutated; the first increment of a new bucket sets the expiry.
var checkAndConsumeScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if count >= limit then
  return {0, count}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return {1, count}
`)

// ErrUnexpectedReply is returned internally when the script reply does not
// have the expected shape. It triggers the same fail-open path as an outage.
var ErrUnexpectedReply = errors.New("unexpected quota script reply")

// Decision is the outcome of a quota check.
type Decision struct {
	// Admitted reports whether the request may proceed.
	Admitted bool
	// State is the post-decision usage snapshot.
	State domain.QuotaState
	// FailOpen is set when the store was unreachable and the request was
	// admitted without enforcement.
	FailOpen bool
}

// Store is the Redis-backed daily quota store.
type Store struct {
	client redis.UniversalClient
	limit  int
	logger logger.Logger
	now    func() time.Time
}

// NewStore creates a quota store with the given process-wide daily limit.
func NewStore(client redis.UniversalClient, limit int, log logger.Logger) *Store {
	return &Store{
		client: client,
		limit:  limit,
		logger: log,
		now:    time.Now,
	}
}

// Limit returns the configured daily limit.
func (s *Store) Limit() int {
	return s.limit
}

// key addresses the counter for the subject's current UTC day. Two calls
// straddling UTC midnight address different keys.
func (s *Store) key(subjectID string) string {
	day := s.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("user:%s:scans:%s", subjectID, day)
}

// CheckAndConsume atomically consumes one quota unit for the subject if any
// remain today. When the store is unreachable the request is admitted anyway
// (fail-open) and the outage is logged as a warning, not surfaced as an error.
func (s *Store) CheckAndConsume(ctx context.Context, subjectID string) Decision {
	key := s.key(subjectID)

	reply, err := checkAndConsumeScript.Run(ctx, s.client, []string{key}, s.limit, bucketTTLSeconds).Result()
	if err != nil {
		return s.failOpen(subjectID, err)
	}

	admitted, count, err := parseReply(reply)
	if err != nil {
		return s.failOpen(subjectID, err)
	}

	return Decision{
		Admitted: admitted,
		State:    domain.QuotaState{Count: count, Limit: s.limit},
	}
}

// Stats returns the subject's usage for today without mutating it. A missing
// bucket reads as zero usage. On store failure the zero state is returned
// together with the error so the caller can flag degraded data.
func (s *Store) Stats(ctx context.Context, subjectID string) (domain.QuotaState, error) {
	zero := domain.QuotaState{Count: 0, Limit: s.limit}

	val, err := s.client.Get(ctx, s.key(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("read quota bucket: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return zero, fmt.Errorf("parse quota bucket value %q: %w", val, err)
	}

	return domain.QuotaState{Count: count, Limit: s.limit}, nil
}

// Ping reports store connectivity, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) failOpen(subjectID string, err error) Decision {
	s.logger.Warn("Quota store unavailable, admitting without enforcement",
		logger.String("subject_id", subjectID),
		logger.Error(err),
	)
	return Decision{
		Admitted: true,
		State:    domain.QuotaState{Count: 0, Limit: s.limit},
		FailOpen: true,
	}
}

func parseReply(reply any) (admitted bool, count int, err error) {
	vals, ok := reply.([]any)
	if !ok || len(vals) != 2 {
		return false, 0, ErrUnexpectedReply
	}
	flag, flagOK := vals[0].(int64)
	n, nOK := vals[1].(int64)
	if !flagOK || !nOK {
		return false, 0, ErrUnexpectedReply
	}
	return flag == 1, int(n), nil
}
