package beans

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// SegmentKind identifies where on a bean a resolution step originates.
type SegmentKind uint8

const (
	SegmentRoot SegmentKind = iota
	SegmentConstructor
	SegmentMethod
	SegmentField
)

// Segment is one frame of a resolution path.
type Segment struct {
	Kind       SegmentKind
	Definition *Definition

	// Name is the argument, field or method name. Empty for root segments.
	Name     string
	Index    int
	Type     reflect.Type
	Nullable bool
}

func (s Segment) String() string {
	owner := s.Definition.String()
	switch s.Kind {
	case SegmentConstructor:
		return fmt.Sprintf("%s(%s %s)", owner, s.Name, formatType(s.Type))
	case SegmentMethod:
		return fmt.Sprintf("%s.%s(%s)", owner, s.Name, formatType(s.Type))
	case SegmentField:
		return fmt.Sprintf("%s.%s", owner, s.Name)
	default:
		return owner
	}
}

// Path is an ordered resolution path, outermost first.
type Path []Segment

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, " --> ")
}

// ResolutionContext carries the state of one outward resolution call: the path
// being resolved, a qualifier stack, and the beans currently under construction.
// Nested resolutions triggered while building a bean share it.
//
// A ResolutionContext must not be used by more than one goroutine at a time. Use
// Copy to hand one to background work.
type ResolutionContext struct {
	ctx        context.Context
	path       []Segment
	qualifiers []Qualifier
	inFlight   map[ScopeKey]*BeanRegistration
	dependents [][]*BeanRegistration

	eachDepth        int
	loadingListeners bool
}

// NewResolutionContext creates an empty context. ctx parents the trace spans of
// beans created through it.
func NewResolutionContext(ctx context.Context) *ResolutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ResolutionContext{
		ctx:      ctx,
		inFlight: make(map[ScopeKey]*BeanRegistration),
	}
}

// Context returns the context spans are parented to.
func (rc *ResolutionContext) Context() context.Context {
	return rc.ctx
}

// Push appends a segment to the path.
func (rc *ResolutionContext) Push(s Segment) {
	rc.path = append(rc.path, s)
}

// Pop removes the last segment.
func (rc *ResolutionContext) Pop() {
	if len(rc.path) > 0 {
		rc.path = rc.path[:len(rc.path)-1]
	}
}

// Path returns a copy of the current path.
func (rc *ResolutionContext) Path() Path {
	return append(Path(nil), rc.path...)
}

// Depth returns the number of segments on the path.
func (rc *ResolutionContext) Depth() int {
	return len(rc.path)
}

// PushQualifier makes q the current qualifier.
func (rc *ResolutionContext) PushQualifier(q Qualifier) {
	rc.qualifiers = append(rc.qualifiers, q)
}

// PopQualifier restores the previous qualifier.
func (rc *ResolutionContext) PopQualifier() {
	if len(rc.qualifiers) > 0 {
		rc.qualifiers = rc.qualifiers[:len(rc.qualifiers)-1]
	}
}

// CurrentQualifier returns the innermost pushed qualifier, or nil.
func (rc *ResolutionContext) CurrentQualifier() Qualifier {
	if len(rc.qualifiers) == 0 {
		return nil
	}
	return rc.qualifiers[len(rc.qualifiers)-1]
}

// MarkInFlight publishes a constructed but not yet initialized registration so a
// recursive lookup of it returns the partial instance.
func (rc *ResolutionContext) MarkInFlight(key ScopeKey, reg *BeanRegistration) {
	rc.inFlight[key] = reg
}

// ClearInFlight removes an in-flight registration.
func (rc *ResolutionContext) ClearInFlight(key ScopeKey) {
	delete(rc.inFlight, key)
}

// InFlight returns the in-flight registration for key.
func (rc *ResolutionContext) InFlight(key ScopeKey) (*BeanRegistration, bool) {
	reg, ok := rc.inFlight[key]
	return reg, ok
}

// InEachExpansion reports whether an each-style expansion is being resolved.
func (rc *ResolutionContext) InEachExpansion() bool {
	return rc.eachDepth > 0
}

// Copy returns an independent context with the same path, qualifiers and in-flight
// beans, for use by another goroutine.
func (rc *ResolutionContext) Copy() *ResolutionContext {
	cp := &ResolutionContext{
		ctx:              rc.ctx,
		path:             append([]Segment(nil), rc.path...),
		qualifiers:       append([]Qualifier(nil), rc.qualifiers...),
		inFlight:         make(map[ScopeKey]*BeanRegistration, len(rc.inFlight)),
		eachDepth:        rc.eachDepth,
		loadingListeners: rc.loadingListeners,
	}
	for k, v := range rc.inFlight {
		cp.inFlight[k] = v
	}
	return cp
}

// cycleStart returns the index of the first segment owned by d, or -1.
func (rc *ResolutionContext) cycleStart(d *Definition) int {
	for i, s := range rc.path {
		if s.Definition == d {
			return i
		}
	}
	return -1
}

// nullableFrom reports whether any segment from index i onward is nullable.
func (rc *ResolutionContext) nullableFrom(i int) bool {
	for _, s := range rc.path[i:] {
		if s.Nullable {
			return true
		}
	}
	return false
}

// cycleLabels renders the owners of the segments from index i.
func (rc *ResolutionContext) cycleLabels(i int) []string {
	var labels []string
	var last *Definition
	for _, s := range rc.path[i:] {
		if s.Definition != last {
			labels = append(labels, s.Definition.String())
			last = s.Definition
		}
	}
	return labels
}

func (rc *ResolutionContext) pushDependents() {
	rc.dependents = append(rc.dependents, nil)
}

func (rc *ResolutionContext) popDependents() []*BeanRegistration {
	n := len(rc.dependents)
	if n == 0 {
		return nil
	}
	deps := rc.dependents[n-1]
	rc.dependents = rc.dependents[:n-1]
	return deps
}

// addDependent records reg as created while building the innermost bean.
func (rc *ResolutionContext) addDependent(reg *BeanRegistration) {
	n := len(rc.dependents)
	if n == 0 {
		return
	}
	rc.dependents[n-1] = append(rc.dependents[n-1], reg)
}
