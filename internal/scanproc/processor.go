// Package scanproc transforms a scanner's raw per-project report into the
// compact, build-optimized ProcessedScan representation consumed by the
// rest of the assembly engine. Grounded on the pure-function transform
// shape of oriys/nova's internal/workflow/dag.go (single entry point, no
// external I/O, deterministic on its input).
package scanproc

import (
	"fmt"

	"github.com/oriys/snapshotbuilder/internal/domain"
	"github.com/oriys/snapshotbuilder/internal/logging"
)

// Process converts one RawScan into a ProcessedScan (§4.1). It never fails
// except on a nil input; empty invocation lists, nil maps, and empty call
// chains are all tolerated.
func Process(raw *domain.RawScan) (*domain.ProcessedScan, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: raw scan is nil", domain.ErrInvalidInput)
	}

	out := domain.NewProcessedScan()
	out.ArtifactID = raw.ArtifactID
	out.IsUIService = raw.IsUIService
	out.Dependencies = raw.Dependencies

	for k, v := range raw.FunctionMappings {
		out.FunctionMappings[k] = v
	}
	for k, v := range raw.UIMethodMappings {
		out.UIMethodMappings[k] = v
	}
	for k, v := range raw.MethodImplMap {
		out.MethodImplMap[k] = v
	}

	implToInterface := make(map[string]string, len(raw.MethodImplMap))
	for iface, impl := range raw.MethodImplMap {
		implToInterface[impl] = iface
	}

	interfaceToEntryPoint := make(map[string]string, len(raw.FunctionMappings)+len(raw.UIMethodMappings))
	for entryPoint, iface := range raw.FunctionMappings {
		interfaceToEntryPoint[iface] = entryPoint
	}
	for entryPoint, iface := range raw.UIMethodMappings {
		interfaceToEntryPoint[iface] = entryPoint
	}

	for name := range raw.FunctionMappings {
		out.EntryPointChildren[name] = domain.NewDependencies()
	}
	for name := range raw.UIMethodMappings {
		out.EntryPointChildren[name] = domain.NewDependencies()
	}

	owner := func(c domain.CallChain) map[string]bool {
		owners := make(map[string]bool)
		for _, m := range c {
			iface, ok := implToInterface[m.Signature]
			if !ok {
				continue
			}
			entryPoint, ok := interfaceToEntryPoint[iface]
			if !ok {
				continue
			}
			owners[entryPoint] = true
		}
		return owners
	}

	publicDepsFor := func(sig string) *domain.Dependencies {
		d, ok := out.PublicMethodDependencies[sig]
		if !ok {
			d = domain.NewDependencies()
			out.PublicMethodDependencies[sig] = d
		}
		return d
	}

	for _, inv := range raw.FunctionInvocations {
		if len(inv.CallChain) == 0 {
			logging.Op().Warn("scanproc: skipping invocation with empty call chain",
				"artifact", raw.ArtifactID, "functionId", inv.FunctionID)
			continue
		}
		owners := owner(inv.CallChain)
		for _, m := range inv.CallChain {
			if m.Access != domain.AccessPublic {
				continue
			}
			set := &publicDepsFor(m.Signature).Functions
			if inv.Type == domain.InvocationExecuteAsync {
				set = &publicDepsFor(m.Signature).AsyncFunctions
			}
			set.Add(inv.FunctionID)
		}
		for entryPoint := range owners {
			d := out.EntryPointChildren[entryPoint]
			if inv.Type == domain.InvocationExecuteAsync {
				d.AsyncFunctions.Add(inv.FunctionID)
			} else {
				d.Functions.Add(inv.FunctionID)
			}
		}
	}

	for _, inv := range raw.ServiceInvocations {
		if len(inv.CallChain) == 0 {
			logging.Op().Warn("scanproc: skipping invocation with empty call chain",
				"artifact", raw.ArtifactID, "target", inv.TargetServiceID)
			continue
		}
		sc := domain.ServiceCall{TargetServiceID: inv.TargetServiceID, TargetInterfaceMethod: inv.TargetInterfaceMethod}
		owners := owner(inv.CallChain)
		for _, m := range inv.CallChain {
			if m.Access != domain.AccessPublic {
				continue
			}
			publicDepsFor(m.Signature).AddServiceCall(sc)
		}
		for entryPoint := range owners {
			out.EntryPointChildren[entryPoint].AddServiceCall(sc)
		}
	}

	for _, inv := range raw.EventInvocations {
		if len(inv.CallChain) == 0 {
			logging.Op().Warn("scanproc: skipping invocation with empty call chain",
				"artifact", raw.ArtifactID, "topic", inv.Topic)
			continue
		}
		topic := inv.Topic
		if !inv.Resolution.IsResolved() {
			topic = domain.UnknownTopicPlaceholder
		}
		owners := owner(inv.CallChain)
		for _, m := range inv.CallChain {
			if m.Access != domain.AccessPublic {
				continue
			}
			publicDepsFor(m.Signature).Topics.Add(topic)
		}
		for entryPoint := range owners {
			out.EntryPointChildren[entryPoint].Topics.Add(topic)
		}
	}

	return out, nil
}
