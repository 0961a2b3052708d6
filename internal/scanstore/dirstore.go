package scanstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oriys/snapshotbuilder/internal/domain"
)

// DirStore is a Store backed by a directory of JSON files, laid out as
//
//	<dir>/scans/<serviceID>/<gitCommitHash>.json      (ProcessedScan)
//	<dir>/failures/<serviceID>/<gitCommitHash>.json    (FailedServiceInfo)
//
// Suitable for the CLI and for tests; a real deployment would use
// PostgresStore instead.
type DirStore struct {
	root string
}

// NewDirStore returns a Store rooted at dir. dir need not exist yet; reads
// against a missing path simply report ErrNotFound.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

func (s *DirStore) ProcessedScan(_ context.Context, serviceID, gitCommitHash string) (*domain.ProcessedScan, error) {
	path := filepath.Join(s.root, "scans", serviceID, gitCommitHash+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read processed scan: %w", err)
	}
	scan := domain.NewProcessedScan()
	if err := json.Unmarshal(data, scan); err != nil {
		return nil, fmt.Errorf("decode processed scan %s/%s: %w", serviceID, gitCommitHash, err)
	}
	return scan, nil
}

func (s *DirStore) Failure(_ context.Context, serviceID, gitCommitHash string) (*domain.FailedServiceInfo, error) {
	path := filepath.Join(s.root, "failures", serviceID, gitCommitHash+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read failure record: %w", err)
	}
	var info domain.FailedServiceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode failure record %s/%s: %w", serviceID, gitCommitHash, err)
	}
	return &info, nil
}

// WriteProcessedScan persists scan so it can be picked back up by
// ProcessedScan, under the same layout. The CLI only reads scans; none of
// its subcommands calls this.
func (s *DirStore) WriteProcessedScan(serviceID, gitCommitHash string, scan *domain.ProcessedScan) error {
	dir := filepath.Join(s.root, "scans", serviceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(scan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, gitCommitHash+".json"), data, 0o644)
}

// WriteFailure persists a failure record for a (serviceID, gitCommitHash) pair.
func (s *DirStore) WriteFailure(serviceID, gitCommitHash string, info *domain.FailedServiceInfo) error {
	dir := filepath.Join(s.root, "failures", serviceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, gitCommitHash+".json"), data, 0o644)
}
