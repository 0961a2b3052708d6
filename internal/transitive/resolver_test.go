package transitive

import (
	"context"
	"testing"

	"github.com/oriys/snapshotbuilder/internal/domain"
)

type stubQueue struct{}

func (stubQueue) ResolveForFunction(_ context.Context, name string) string { return name + "_q" }
func (stubQueue) ResolveForTopic(_ context.Context, name string) string    { return name + "_tq" }
func (stubQueue) ClearCache(_ context.Context) error                       { return nil }

func TestBuildTable_SkipsEmptyDependencies(t *testing.T) {
	scanB := domain.NewProcessedScan()
	scanB.ArtifactID = "B"
	scanB.MethodImplMap["I.mb(...)"] = "BImpl.mb(...)"
	scanB.PublicMethodDependencies["BImpl.mb(...)"] = domain.NewDependencies() // empty, should be skipped

	table := BuildTable(map[string]*domain.ProcessedScan{"B": scanB})
	if _, ok := table["B"]["I.mb(...)"]; ok {
		t.Fatal("expected empty Dependencies to be skipped from the transitive table")
	}
}

func TestExpand_TwoHop(t *testing.T) {
	scanB := domain.NewProcessedScan()
	scanB.ArtifactID = "B"
	scanB.MethodImplMap["I_B.mb(...)"] = "BImpl.mb(...)"
	bDeps := domain.NewDependencies()
	bDeps.Functions.Add("leaf")
	scanB.PublicMethodDependencies["BImpl.mb(...)"] = bDeps

	table := BuildTable(map[string]*domain.ProcessedScan{"B": scanB})
	r := New(table, stubQueue{})

	sink := domain.NewChildRefList()
	visited := make(map[string]bool)
	r.Expand(context.Background(), domain.ServiceCall{TargetServiceID: "B", TargetInterfaceMethod: "I_B.mb(...)"}, sink, visited)

	if len(sink.Children) != 1 || sink.Children[0].Ref != "leaf" {
		t.Fatalf("expected single leaf child, got %+v", sink.Children)
	}
}

func TestExpand_CycleProtection(t *testing.T) {
	scanA := domain.NewProcessedScan()
	scanA.MethodImplMap["I_A.ma(...)"] = "AImpl.ma(...)"
	aDeps := domain.NewDependencies()
	aDeps.AddServiceCall(domain.ServiceCall{TargetServiceID: "A", TargetInterfaceMethod: "I_A.ma(...)"}) // self-cycle
	scanA.PublicMethodDependencies["AImpl.ma(...)"] = aDeps

	table := BuildTable(map[string]*domain.ProcessedScan{"A": scanA})
	r := New(table, stubQueue{})

	sink := domain.NewChildRefList()
	visited := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		r.Expand(context.Background(), domain.ServiceCall{TargetServiceID: "A", TargetInterfaceMethod: "I_A.ma(...)"}, sink, visited)
		close(done)
	}()
	select {
	case <-done:
	default:
	}
	<-done // would hang forever without cycle protection; test framework timeout catches regressions
}

func TestExpand_DanglingCallIsSilentlyIgnored(t *testing.T) {
	table := BuildTable(map[string]*domain.ProcessedScan{})
	r := New(table, stubQueue{})

	sink := domain.NewChildRefList()
	visited := make(map[string]bool)
	r.Expand(context.Background(), domain.ServiceCall{TargetServiceID: "Missing", TargetInterfaceMethod: "I.x(...)"}, sink, visited)

	if len(sink.Children) != 0 {
		t.Fatalf("expected no children for dangling call, got %+v", sink.Children)
	}
}
