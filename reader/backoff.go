package reader

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logminer/redocore/redolib/rerr"
)

// OpenArchiveWithRetry wraps Reader.Open in a bounded backoff loop for the
// archive case (spec §4.1: "bounded archReadTries with archReadSleepUs
// backoff"), since an archiver may still be writing the file when the
// parser first looks for it.
func OpenArchiveWithRetry(r *Reader, cfg Config) (Info, error) {
	tries := cfg.ArchReadTries
	if tries <= 0 {
		tries = 1
	}
	sleep := time.Duration(cfg.ArchReadSleepUs) * time.Microsecond
	if sleep <= 0 {
		sleep = 10 * time.Millisecond
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(sleep), uint64(tries-1))

	var info Info
	op := func() error {
		var err error
		info, err = r.Open()
		if err != nil && rerr.Is(err, rerr.NotReady) {
			return err // retryable
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return Info{}, err
	}
	return info, nil
}
