package domain

import (
	"encoding/json"
	"testing"
)

func TestDependencies_JSONRoundTripPreservesLeaves(t *testing.T) {
	d := NewDependencies()
	d.Functions.Add("g")
	d.AsyncFunctions.Add("h")
	d.Topics.Add("T")
	d.AddServiceCall(ServiceCall{TargetServiceID: "SVC_B", TargetInterfaceMethod: "I_B.mb(...)"})

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Dependencies
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.Functions.Len() != 1 || !out.Functions.Has("g") {
		t.Fatalf("lost Functions on round trip: %v", out.Functions.Items())
	}
	if out.AsyncFunctions.Len() != 1 || !out.AsyncFunctions.Has("h") {
		t.Fatalf("lost AsyncFunctions on round trip: %v", out.AsyncFunctions.Items())
	}
	if out.Topics.Len() != 1 || !out.Topics.Has("T") {
		t.Fatalf("lost Topics on round trip: %v", out.Topics.Items())
	}
	if len(out.ServiceCalls) != 1 || out.ServiceCalls[0].TargetServiceID != "SVC_B" {
		t.Fatalf("lost ServiceCalls on round trip: %v", out.ServiceCalls)
	}
}

func TestDependencies_UnmarshalRebuildsServiceCallIndex(t *testing.T) {
	sc := ServiceCall{TargetServiceID: "SVC_B", TargetInterfaceMethod: "I_B.mb(...)"}
	d := NewDependencies()
	d.AddServiceCall(sc)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Dependencies
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.AddServiceCall(sc) {
		t.Fatal("expected the loaded index to dedup an already-present service call")
	}
	if len(out.ServiceCalls) != 1 {
		t.Fatalf("expected no duplicate appended, got %v", out.ServiceCalls)
	}
}

func TestDependencies_IsEmptySurvivesRoundTrip(t *testing.T) {
	d := NewDependencies()
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Dependencies
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.IsEmpty() {
		t.Fatal("expected round-tripped empty Dependencies to still be empty")
	}
}
