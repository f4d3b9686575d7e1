package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// Both keys share a hash tag so the script and transaction below stay on one
// cluster slot.
const (
	listKey       = "{todos}:list"
	generationKey = "{todos}:gen"
)

// setIfGeneration writes the list only while the generation is unchanged.
var setIfGeneration = redislib.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

type listCache struct {
	client redislib.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewListCache creates a Redis-backed cache for the full todo list.
func NewListCache(client redislib.UniversalClient, prefix string, ttl time.Duration) repository.TodoListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &listCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *listCache) Get(ctx context.Context) ([]domain.Todo, int64, bool, error) {
	values, err := c.client.MGet(ctx, c.generationKey(), c.listKey()).Result()
	if err != nil {
		return nil, 0, false, err
	}

	generation, err := parseGeneration(values[0])
	if err != nil {
		return nil, 0, false, err
	}
	payload, ok := values[1].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var todos []domain.Todo
	if err := json.Unmarshal([]byte(payload), &todos); err != nil {
		return nil, generation, false, err
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, generation, true, nil
}

func (c *listCache) Set(ctx context.Context, generation int64, todos []domain.Todo) (bool, error) {
	if todos == nil {
		todos = []domain.Todo{}
	}
	payload, err := json.Marshal(todos)
	if err != nil {
		return false, err
	}

	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{c.generationKey(), c.listKey()},
		strconv.FormatInt(generation, 10), payload, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *listCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Incr(ctx, c.generationKey())
		pipe.Del(ctx, c.listKey())
		return nil
	})
	return err
}

func (c *listCache) listKey() string {
	return c.prefix + listKey
}

func (c *listCache) generationKey() string {
	return c.prefix + generationKey
}

func parseGeneration(value interface{}) (int64, error) {
	if value == nil {
		return 0, nil
	}
	raw, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", value)
	}
	return strconv.ParseInt(raw, 10, 64)
}
