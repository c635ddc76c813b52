package jobstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/you-humble/sttqueue/core/domain"

	"github.com/redis/go-redis/v9"
)

// Transitions run as Lua scripts so the status check and the write are one
// atomic step. Scripts return -1 for a missing job, 0 when the job is
// already terminal and 1 when the write was applied.
var (
	markRunningScript = redis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'status')
if not st then return -1 end
if st == ARGV[2] or st == ARGV[3] then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[4], 'started_at', ARGV[1])
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return 1
`)

	finishScript = redis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'status')
if not st then return -1 end
if st == ARGV[5] or st == ARGV[6] then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'result', ARGV[2], 'error', ARGV[3], 'finished_at', ARGV[4])
return 1
`)
)

type redisJobStore struct {
	rdb redis.Cmdable
}

func NewRedisJobStore(rdb redis.Cmdable) *redisJobStore {
	return &redisJobStore{rdb: rdb}
}

func (s *redisJobStore) Create(ctx context.Context, j domain.Job) error {
	if j.ID == "" {
		return fmt.Errorf("create job: empty id")
	}
	if j.Status == "" {
		j.Status = domain.StatusPending
	}

	pipe := s.rdb.TxPipeline()

	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"id":           j.ID,
		"status":       string(j.Status),
		"input_path":   j.InputPath,
		"partition":    j.Partition,
		"filename":     j.Filename,
		"result":       j.Result,
		"error":        j.Error,
		"attempts":     j.Attempts,
		"submitted_at": unixNano(j.SubmittedAt),
		"started_at":   unixNano(j.StartedAt),
		"finished_at":  unixNano(j.FinishedAt),
	})

	pipe.ZAdd(ctx, jobsBySubmittedKey(), redis.Z{
		Score:  float64(j.SubmittedAt.Unix()),
		Member: j.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline Create: %w", err)
	}

	return nil
}

func (s *redisJobStore) Job(ctx context.Context, id string) (domain.Job, error) {
	res, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return domain.Job{}, fmt.Errorf("redis HGetAll: %w", err)
	}
	if len(res) == 0 {
		return domain.Job{}, domain.ErrJobNotFound
	}

	j := domain.Job{
		ID: id,
	}

	j.Status = domain.JobStatus(res["status"])
	j.InputPath = res["input_path"]
	j.Partition = res["partition"]
	j.Filename = res["filename"]
	j.Result = res["result"]
	j.Error = res["error"]

	if v, ok := res["attempts"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			j.Attempts = n
		}
	}

	j.SubmittedAt = parseUnixNano(res["submitted_at"])
	j.StartedAt = parseUnixNano(res["started_at"])
	j.FinishedAt = parseUnixNano(res["finished_at"])

	return j, nil
}

func (s *redisJobStore) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := markRunningScript.Run(ctx, s.rdb, []string{jobKey(id)},
		unixNano(at),
		string(domain.StatusSucceeded),
		string(domain.StatusFailed),
		string(domain.StatusRunning),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis MarkRunning: %w", err)
	}
	return applied(n)
}

func (s *redisJobStore) Complete(ctx context.Context, id, result string, at time.Time) (bool, error) {
	return s.finish(ctx, id, domain.StatusSucceeded, result, "", at)
}

func (s *redisJobStore) Fail(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return s.finish(ctx, id, domain.StatusFailed, "", reason, at)
}

func (s *redisJobStore) finish(
	ctx context.Context,
	id string,
	status domain.JobStatus,
	result, reason string,
	at time.Time,
) (bool, error) {
	n, err := finishScript.Run(ctx, s.rdb, []string{jobKey(id)},
		string(status),
		result,
		reason,
		unixNano(at),
		string(domain.StatusSucceeded),
		string(domain.StatusFailed),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis finish %s: %w", status, err)
	}
	return applied(n)
}

func applied(n int) (bool, error) {
	switch n {
	case -1:
		return false, domain.ErrJobNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func parseUnixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return fromUnixNano(n)
}

func jobKey(id string) string {
	return "job:" + id
}

func jobsBySubmittedKey() string {
	return "jobs:by_submitted"
}
