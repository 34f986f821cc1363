package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/skillforge/registry/internal/db"
)

// Tx performs an optimistic read-modify-write on a single key via
// WATCH/GET/MULTI/SET/EXEC on a dedicated connection. A concurrent write
// to the key aborts EXEC and surfaces as db.ErrTxConflict. There is no
// retry here; retry-vs-deny is the caller's policy.
func (s *Store) Tx(ctx context.Context, key string, update db.TxUpdate) error {
	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		if err := c.Do(ctx, c.B().Watch().Key(key).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpWatch, Err: err}
		}

		var current []byte
		data, err := c.Do(ctx, c.B().Get().Key(key).Build()).AsBytes()
		switch {
		case err == nil:
			current = data
		case rueidis.IsRedisNil(err):
			current = nil
		default:
			_ = c.Do(ctx, c.B().Unwatch().Build()).Error()
			return &db.Error{Op: db.OpGet, Err: err}
		}

		next, ttl, err := update(current)
		if err != nil {
			_ = c.Do(ctx, c.B().Unwatch().Build()).Error()
			return err
		}

		setCmd := buildSet(c, key, next, ttl)
		results := c.DoMulti(ctx,
			c.B().Multi().Build(),
			setCmd,
			c.B().Exec().Build(),
		)
		execRes := results[len(results)-1]
		if err := execRes.Error(); err != nil {
			// EXEC returns nil when the watched key changed under us.
			if rueidis.IsRedisNil(err) {
				return db.ErrTxConflict
			}
			return &db.Error{Op: db.OpExec, Err: err}
		}
		return nil
	})
}

func buildSet(c rueidis.DedicatedClient, key string, value []byte, ttl time.Duration) rueidis.Completed {
	b := c.B().Set().Key(key).Value(string(value))
	if ttl > 0 {
		return b.Px(ttl).Build()
	}
	return b.Build()
}
