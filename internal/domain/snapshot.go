package domain

import "encoding/json"

// FailedServiceInfo records a service excluded from a build because the
// scanner previously failed to produce a scan for it.
type FailedServiceInfo struct {
	ServiceID     string    `json:"serviceId"`
	GitCommitHash string    `json:"gitCommitHash"`
	ErrorType     ErrorType `json:"errorType"`
	ErrorMessage  string    `json:"errorMessage"`
}

// Snapshot is the composite output of SnapshotAssembler.Build.
type Snapshot struct {
	AppTemplate     *AppTemplate        `json:"appTemplate"`
	FunctionPool    FunctionPool        `json:"functionPool"`
	IsComplete      bool                `json:"isComplete"`
	FailedServices  []FailedServiceInfo `json:"failedServices"`
	Warnings        []string            `json:"warnings"`
}

// NewSnapshot returns a Snapshot with an App root and empty collections,
// ready for SnapshotAssembler to populate.
func NewSnapshot(appName string) *Snapshot {
	return &Snapshot{
		AppTemplate:    &AppTemplate{Root: NewAppNode(appName)},
		FunctionPool:   make(FunctionPool),
		FailedServices: []FailedServiceInfo{},
		Warnings:       []string{},
	}
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	a := alias(*s)
	if a.FailedServices == nil {
		a.FailedServices = []FailedServiceInfo{}
	}
	if a.Warnings == nil {
		a.Warnings = []string{}
	}
	if a.FunctionPool == nil {
		a.FunctionPool = make(FunctionPool)
	}
	return json.Marshal(a)
}
