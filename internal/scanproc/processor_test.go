package scanproc

import (
	"testing"

	"github.com/oriys/snapshotbuilder/internal/domain"
)

func TestProcess_NilInput(t *testing.T) {
	if _, err := Process(nil); err == nil {
		t.Fatal("expected error for nil RawScan")
	}
}

func TestProcess_EmptyScanTolerated(t *testing.T) {
	raw := &domain.RawScan{ArtifactID: "empty"}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.ArtifactID != "empty" {
		t.Fatalf("expected artifact id preserved, got %s", out.ArtifactID)
	}
	if len(out.EntryPointChildren) != 0 {
		t.Fatalf("expected no entry points, got %+v", out.EntryPointChildren)
	}
}

func TestProcess_EmptyCallChainSkipped(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		FunctionInvocations: []domain.FunctionInvocation{
			{FunctionID: "g", Type: domain.InvocationExecute, CallChain: nil},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.EntryPointChildren["f"].Functions.Len() != 0 {
		t.Fatalf("expected invocation with empty call chain to be skipped, got %+v", out.EntryPointChildren["f"])
	}
}

func TestProcess_SyncAndAsyncFunctionInvocations(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		FunctionInvocations: []domain.FunctionInvocation{
			{FunctionID: "g", Type: domain.InvocationExecute, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
			{FunctionID: "h", Type: domain.InvocationExecuteAsync, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	deps := out.EntryPointChildren["f"]
	if !deps.Functions.Has("g") {
		t.Errorf("expected g in functions, got %+v", deps.Functions.Items())
	}
	if !deps.AsyncFunctions.Has("h") {
		t.Errorf("expected h in asyncFunctions, got %+v", deps.AsyncFunctions.Items())
	}

	pubDeps := out.PublicMethodDependencies["Impl.f(...)"]
	if !pubDeps.Functions.Has("g") || !pubDeps.AsyncFunctions.Has("h") {
		t.Errorf("expected public method dependencies to mirror owner deps, got %+v", pubDeps)
	}
}

func TestProcess_PrivateCallChainExcludedFromPublicDeps(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		FunctionInvocations: []domain.FunctionInvocation{
			{FunctionID: "g", Type: domain.InvocationExecute, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPrivate},
			}},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.EntryPointChildren["f"].Functions.Has("g") != true {
		// The owner still gets the dependency regardless of the chain
		// element's access; only publicMethodDependencies is gated on PUBLIC.
		t.Fatalf("expected owner's entryPointChildren to include g")
	}
	if _, ok := out.PublicMethodDependencies["Impl.f(...)"]; ok {
		t.Fatalf("expected no public method dependencies recorded for a private-only chain")
	}
}

func TestProcess_ServiceInvocationDedup(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		ServiceInvocations: []domain.ServiceInvocation{
			{TargetServiceID: "B", TargetInterfaceMethod: "I_B.mb(...)", CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
			{TargetServiceID: "B", TargetInterfaceMethod: "I_B.mb(...)", CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	deps := out.EntryPointChildren["f"]
	if len(deps.ServiceCalls) != 1 {
		t.Fatalf("expected deduplicated service call, got %+v", deps.ServiceCalls)
	}
}

func TestProcess_UnresolvedTopicUsesPlaceholder(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		EventInvocations: []domain.EventPublisherInvocation{
			{Topic: "t1", Resolution: domain.TopicUnknownConstant, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.EntryPointChildren["f"].Topics.Has(domain.UnknownTopicPlaceholder) {
		t.Fatalf("expected unknown-topic placeholder, got %+v", out.EntryPointChildren["f"].Topics.Items())
	}
}

func TestProcess_ResolvedTopicKeepsLiteral(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		EventInvocations: []domain.EventPublisherInvocation{
			{Topic: "orders.created", Resolution: domain.TopicResolved, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
		},
	}
	out, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.EntryPointChildren["f"].Topics.Has("orders.created") {
		t.Fatalf("expected resolved topic literal, got %+v", out.EntryPointChildren["f"].Topics.Items())
	}
}

func TestProcess_Idempotent(t *testing.T) {
	raw := &domain.RawScan{
		ArtifactID:       "svc",
		FunctionMappings: map[string]string{"f": "I.f(...)"},
		MethodImplMap:    map[string]string{"I.f(...)": "Impl.f(...)"},
		FunctionInvocations: []domain.FunctionInvocation{
			{FunctionID: "g", Type: domain.InvocationExecute, CallChain: domain.CallChain{
				{Signature: "Impl.f(...)", Access: domain.AccessPublic},
			}},
		},
	}
	out1, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out2, err := Process(raw)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out1.EntryPointChildren["f"].Functions.Items()[0] != out2.EntryPointChildren["f"].Functions.Items()[0] {
		t.Fatal("expected two runs over the same RawScan to agree")
	}
}
