package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// JobLocks is a lease table (sys_job_locks) used to elect one scheduler per
// job when redis is not configured. An expired lease can be taken over.
type JobLocks struct {
	txManager *TxManager
	holder    string
}

// NewJobLocks creates leases owned by holder (host name plus pid).
func NewJobLocks(txManager *TxManager, holder string) *JobLocks {
	return &JobLocks{txManager: txManager, holder: holder}
}

// TryLock takes the lease for name for ttl. ok is false when another live
// holder owns it.
func (l *JobLocks) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	now := time.Now().UTC()
	var holder string
	err := l.txManager.Pool().QueryRow(ctx, `
		INSERT INTO sys_job_locks (job_name, holder, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_name) DO UPDATE
		SET holder = EXCLUDED.holder,
		    acquired_at = EXCLUDED.acquired_at,
		    expires_at = EXCLUDED.expires_at
		WHERE sys_job_locks.expires_at < $3 OR sys_job_locks.holder = EXCLUDED.holder
		RETURNING holder
	`, name, l.holder, now, now.Add(ttl)).Scan(&holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("acquire job lock %s: %w", name, err)
	}

	release := func(ctx context.Context) error {
		_, err := l.txManager.Pool().Exec(ctx,
			`DELETE FROM sys_job_locks WHERE job_name = $1 AND holder = $2`, name, l.holder)
		return err
	}
	return release, true, nil
}
