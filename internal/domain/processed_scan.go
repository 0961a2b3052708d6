package domain

// ProcessedScan is the build-optimized, immutable-post-build output of
// ScanProcessor for one service at one commit.
type ProcessedScan struct {
	ArtifactID   string
	IsUIService  bool
	Dependencies []string // declared service dependency artifact-ids, as parsed

	FunctionMappings map[string]string // entry-point short name -> interface method
	UIMethodMappings map[string]string // ui-method short name -> interface method
	MethodImplMap    map[string]string // interface method -> implementation method

	// EntryPointChildren maps entry-point short name -> its direct leaf
	// dependencies, for every key of FunctionMappings and UIMethodMappings.
	EntryPointChildren map[string]*Dependencies

	// PublicMethodDependencies maps implementation-method-signature ->
	// Dependencies, populated only from call-chain elements whose access
	// modifier is PUBLIC. Used by TransitiveResolver when another service
	// calls into this method.
	PublicMethodDependencies map[string]*Dependencies
}

// NewProcessedScan returns a ProcessedScan with initialized maps.
func NewProcessedScan() *ProcessedScan {
	return &ProcessedScan{
		FunctionMappings:         make(map[string]string),
		UIMethodMappings:         make(map[string]string),
		MethodImplMap:            make(map[string]string),
		EntryPointChildren:       make(map[string]*Dependencies),
		PublicMethodDependencies: make(map[string]*Dependencies),
	}
}

// EntryPointNames returns every key of FunctionMappings plus UIMethodMappings.
func (p *ProcessedScan) EntryPointNames() []string {
	names := make([]string, 0, len(p.FunctionMappings)+len(p.UIMethodMappings))
	for name := range p.FunctionMappings {
		names = append(names, name)
	}
	for name := range p.UIMethodMappings {
		names = append(names, name)
	}
	return names
}

// DependenciesFor returns the entry point's direct dependencies, or an
// empty Dependencies if absent.
func (p *ProcessedScan) DependenciesFor(entryPoint string) *Dependencies {
	if d, ok := p.EntryPointChildren[entryPoint]; ok && d != nil {
		return d
	}
	return NewDependencies()
}
