package trait

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors. Expected registration failures travel inside
// ValidationResult; these sentinels surface through errors.Is on the
// aggregated declaration error and on programmer-error returns.
var (
	// ErrUnknownTrait marks an identifier outside the closed catalog.
	ErrUnknownTrait = errors.New("unknown trait")
	// ErrSealed marks a registration blocked by a sealed trait.
	ErrSealed = errors.New("trait is sealed")
	// ErrOrphan marks a registration blocked by the coherence rule.
	ErrOrphan = errors.New("orphan rule violation")
	// ErrNilImplementation marks a nil implementing value.
	ErrNilImplementation = errors.New("nil implementation")
)

// Mode selects how HasTrait answers membership questions.
type Mode string

const (
	// ModeRegistered consults the registry ledger only.
	ModeRegistered Mode = "registered"
	// ModeProtocol checks the implementing type structurally against the
	// trait's full contract, ignoring the ledger.
	ModeProtocol Mode = "protocol"
)

// FailureKind classifies a rejected registration.
type FailureKind uint8

const (
	// FailureNone marks a successful registration.
	FailureNone FailureKind = iota
	// FailureStructural: the implementing type is missing required
	// contract attributes or operations.
	FailureStructural
	// FailureDependency: the trait's declared dependencies are not
	// registered for the implementing type.
	FailureDependency
	// FailureOrphan: neither the trait nor the implementing type belongs
	// to a local module.
	FailureOrphan
	// FailureSealed: the trait is sealed against new out-of-module
	// implementers.
	FailureSealed
	// FailureCollected: the weakly-held implementing type was collected
	// before the ledger entry could be written.
	FailureCollected
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "ok"
	case FailureStructural:
		return "structural"
	case FailureDependency:
		return "dependency"
	case FailureOrphan:
		return "orphan"
	case FailureSealed:
		return "sealed"
	case FailureCollected:
		return "collected"
	default:
		return fmt.Sprintf("failure(%d)", uint8(k))
	}
}

// ValidationResult is the structured outcome of one Register call. Expected
// failures come back here with a nil error so callers can aggregate; Kind is
// the most severe failure found and the Missing* fields carry everything
// discovered, not just the first problem.
type ValidationResult struct {
	Trait               Trait
	Type                string
	Kind                FailureKind
	MissingAttributes   []string
	MissingDependencies Composition
	Message             string
	PerformanceWarning  string
	Elapsed             time.Duration
}

// OK reports whether the registration succeeded.
func (r ValidationResult) OK() bool { return r.Kind == FailureNone }

// sentinel maps the failure kind to its errors.Is anchor, when one exists.
func (r ValidationResult) sentinel() error {
	switch r.Kind {
	case FailureSealed:
		return ErrSealed
	case FailureOrphan:
		return ErrOrphan
	default:
		return nil
	}
}

// failureDetail renders the per-trait clause used in aggregated reports.
func (r ValidationResult) failureDetail() string {
	var parts []string
	if len(r.MissingAttributes) > 0 {
		parts = append(parts, fmt.Sprintf("missing attributes %s", strings.Join(r.MissingAttributes, ", ")))
	}
	if !r.MissingDependencies.IsEmpty() {
		parts = append(parts, fmt.Sprintf("missing dependencies %s", strings.Join(r.MissingDependencies.Names(), ", ")))
	}
	switch r.Kind {
	case FailureOrphan, FailureSealed, FailureCollected:
		parts = append(parts, r.Message)
	}
	if len(parts) == 0 {
		parts = append(parts, r.Message)
	}
	return fmt.Sprintf("%s %s", r.Trait, strings.Join(parts, "; "))
}

// DeclarationError aggregates every failure from one batch declaration.
// The batch left no side effects behind.
type DeclarationError struct {
	Type    string
	Results []ValidationResult
}

func (e *DeclarationError) Error() string {
	details := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		if r.OK() {
			continue
		}
		details = append(details, r.failureDetail())
	}
	return fmt.Sprintf("%s: failed to implement traits: %s", e.Type, strings.Join(details, "; "))
}

// Unwrap exposes the sentinel anchors of the aggregated failures so
// errors.Is(err, ErrSealed) and friends work on the batch error.
func (e *DeclarationError) Unwrap() []error {
	var out []error
	for _, r := range e.Results {
		if s := r.sentinel(); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// CompositionError reports a value that cannot participate in composition.
type CompositionError struct {
	Index int
	Part  any
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose: unsupported part %T at index %d", e.Part, e.Index)
}
