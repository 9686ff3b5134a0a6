package service

import (
	"context"
	"hash/fnv"
	"sync"

	dErrors "fdctax/pkg/domain-errors"
)

// numSessionShards spreads sessions over a fixed set of mutexes so unrelated
// sessions rarely contend.
const numSessionShards = 128

// sessionLocks serialises every read-modify-write of one session. Stores only
// provide atomic Save, so two requests for the same session must not
// interleave between load and save.
type sessionLocks struct {
	shards [numSessionShards]sync.Mutex
}

// run executes fn while holding the shard for sessionID.
func (l *sessionLocks) run(ctx context.Context, sessionID string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request aborted: context cancelled")
	}

	mu := &l.shards[shardFor(sessionID)]
	mu.Lock()
	defer mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request aborted: context cancelled")
	}
	return fn()
}

func shardFor(sessionID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return h.Sum32() % numSessionShards
}
