package domain

import "encoding/json"

// ServiceCall is a cross-service invocation target: the callee service id
// plus the exposed interface-method signature being invoked on it.
type ServiceCall struct {
	TargetServiceID       string `json:"targetServiceId"`
	TargetInterfaceMethod string `json:"targetInterfaceMethod"`
}

// Dependencies is the value object attached to an entry point or a public
// implementation method: the direct leaves it reaches, plus the outbound
// service calls that must be transitively expanded to find further leaves.
//
// functions/asyncFunctions/topics are insertion-ordered sets (duplicate adds
// are no-ops); serviceCalls is an insertion-ordered list deduplicated on the
// (targetServiceId, targetInterfaceMethod) pair.
type Dependencies struct {
	Functions      OrderedSet    `json:"functions"`
	AsyncFunctions OrderedSet    `json:"asyncFunctions"`
	Topics         OrderedSet    `json:"topics"`
	ServiceCalls   []ServiceCall `json:"serviceCalls"`

	serviceCallIndex map[ServiceCall]bool
}

// NewDependencies returns an empty, ready-to-use Dependencies.
func NewDependencies() *Dependencies {
	return &Dependencies{serviceCallIndex: make(map[ServiceCall]bool)}
}

// UnmarshalJSON decodes the exported fields as usual, then rebuilds the
// unexported serviceCallIndex from ServiceCalls so AddServiceCall's
// dedup-on-pair behavior still holds for a Dependencies loaded from a
// store round trip, not just one built fresh by ScanProcessor.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	type plain Dependencies
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Dependencies(p)
	d.serviceCallIndex = make(map[ServiceCall]bool, len(d.ServiceCalls))
	for _, sc := range d.ServiceCalls {
		d.serviceCallIndex[sc] = true
	}
	return nil
}

// AddServiceCall appends sc if its (service, method) pair hasn't been seen.
// Returns true if it was newly added.
func (d *Dependencies) AddServiceCall(sc ServiceCall) bool {
	if d.serviceCallIndex == nil {
		d.serviceCallIndex = make(map[ServiceCall]bool)
	}
	if d.serviceCallIndex[sc] {
		return false
	}
	d.serviceCallIndex[sc] = true
	d.ServiceCalls = append(d.ServiceCalls, sc)
	return true
}

// IsEmpty reports whether all four fields are empty.
func (d *Dependencies) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.Functions.Len() == 0 && d.AsyncFunctions.Len() == 0 &&
		d.Topics.Len() == 0 && len(d.ServiceCalls) == 0
}

// Merge is multiset-union on the three ordered sets and dedup-append on
// serviceCalls, in place on d.
func (d *Dependencies) Merge(other *Dependencies) {
	if other == nil {
		return
	}
	d.Functions.Merge(&other.Functions)
	d.AsyncFunctions.Merge(&other.AsyncFunctions)
	d.Topics.Merge(&other.Topics)
	for _, sc := range other.ServiceCalls {
		d.AddServiceCall(sc)
	}
}
