// Package scanstore is the persistence boundary named in §7: the backing
// store for successful ProcessedScans, recorded scan failures, and (for
// the §4.6 DAO variant) the queue-name map. This boundary is out of scope
// per §1 ("persistence: relational tables for successful/failed scans and
// queue mappings"), so only the Store interface is load-bearing for the
// rest of the engine; the two implementations below exist so the engine
// is runnable end-to-end without an external scanner pipeline.
package scanstore

import (
	"context"
	"errors"

	"github.com/oriys/snapshotbuilder/internal/domain"
)

// ErrNotFound is returned by Store.ProcessedScan when no scan is recorded
// and by Store.Failure when no failure record exists for the given
// service/commit (for Failure this is not an error condition; callers
// treat a miss as "not failed").
var ErrNotFound = errors.New("scanstore: not found")

// Store looks up a ProcessedScan and any recorded failure for a
// (serviceId, gitCommitHash) pair.
type Store interface {
	// ProcessedScan returns the build-optimized scan for the given
	// service at the given commit, or ErrNotFound if none is recorded.
	ProcessedScan(ctx context.Context, serviceID, gitCommitHash string) (*domain.ProcessedScan, error)

	// Failure returns the recorded scan failure for the given service at
	// the given commit, or ErrNotFound if the scan was never marked
	// failed (this is the common case, not an error).
	Failure(ctx context.Context, serviceID, gitCommitHash string) (*domain.FailedServiceInfo, error)
}
