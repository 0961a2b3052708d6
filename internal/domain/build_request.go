package domain

import "fmt"

// ServiceRef pins one service to a commit for a build.
type ServiceRef struct {
	ServiceID     string `json:"serviceId"`
	GitCommitHash string `json:"gitCommitHash"`
}

// BuildRequest is the input to SnapshotAssembler.Build.
type BuildRequest struct {
	AppName  string       `json:"appName"`
	Services []ServiceRef `json:"services"`
}

// Validate checks the preconditions SnapshotAssembler.Build requires
// before starting work: non-empty appName, at least one service, and
// non-empty id/commit on each.
func (r *BuildRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidInput)
	}
	if r.AppName == "" {
		return fmt.Errorf("%w: appName is empty", ErrInvalidInput)
	}
	if len(r.Services) == 0 {
		return fmt.Errorf("%w: at least one service is required", ErrInvalidInput)
	}
	for i, svc := range r.Services {
		if svc.ServiceID == "" {
			return fmt.Errorf("%w: services[%d] has empty serviceId", ErrInvalidInput, i)
		}
		if svc.GitCommitHash == "" {
			return fmt.Errorf("%w: services[%d] has empty gitCommitHash", ErrInvalidInput, i)
		}
	}
	return nil
}
