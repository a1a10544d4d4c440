package priorauth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Dispositions attached by the built-in decision rules.
const (
	DispositionPending  = "Queued for clinical review"
	DispositionApproved = "Approved per policy"
	DispositionDenied   = "Denied per policy"
)

// Decision is the outcome of running the policy chain for a new request.
type Decision struct {
	Status      Status
	Disposition string
}

// OverrideSource is the subset of the override repository the policy needs.
type OverrideSource interface {
	GetByCodeAndCoverage(ctx context.Context, procedureCode string, coverageID uuid.UUID) (*PolicyOverride, error)
}

type decisionInput struct {
	procedureCode string
	coverageID    uuid.UUID
	requirements  Requirements
}

// A decisionRule either claims the request by returning a Decision or
// passes it along by returning nil.
type decisionRule struct {
	name string
	eval func(ctx context.Context, in decisionInput) (*Decision, error)
}

// Policy decides the initial status of a request by running an ordered rule
// chain: procedures that need no authorization are settled first, then
// payer overrides, and whatever is left goes to clinical review. Order is
// load-bearing: an override is never consulted for a procedure that does
// not require authorization.
type Policy struct {
	rules []decisionRule
}

func NewPolicy(overrides OverrideSource) *Policy {
	p := &Policy{}
	p.rules = []decisionRule{
		{name: "not_required", eval: notRequiredRule},
		{name: "override", eval: overrideRule(overrides)},
		{name: "pending", eval: pendingFallback},
	}
	return p
}

// Decide runs the chain. The fallback rule always matches, so a nil error
// implies a valid decision.
func (p *Policy) Decide(ctx context.Context, procedureCode string, coverageID uuid.UUID, req Requirements) (Decision, error) {
	in := decisionInput{procedureCode: procedureCode, coverageID: coverageID, requirements: req}
	for _, rule := range p.rules {
		d, err := rule.eval(ctx, in)
		if err != nil {
			return Decision{}, err
		}
		if d != nil {
			return *d, nil
		}
	}
	return Decision{Status: StatusPending, Disposition: DispositionPending}, nil
}

func notRequiredRule(_ context.Context, in decisionInput) (*Decision, error) {
	if in.requirements.RequiresAuth {
		return nil, nil
	}
	return &Decision{Status: StatusNotRequired, Disposition: ""}, nil
}

func overrideRule(overrides OverrideSource) func(ctx context.Context, in decisionInput) (*Decision, error) {
	return func(ctx context.Context, in decisionInput) (*Decision, error) {
		if overrides == nil {
			return nil, nil
		}
		o, err := overrides.GetByCodeAndCoverage(ctx, in.procedureCode, in.coverageID)
		if errors.Is(err, ErrOverrideNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		switch o.Action {
		case ActionApprove:
			return &Decision{Status: StatusApproved, Disposition: dispositionFor(o, DispositionApproved)}, nil
		case ActionDeny:
			return &Decision{Status: StatusDenied, Disposition: dispositionFor(o, DispositionDenied)}, nil
		}
		// Unknown action rows are ignored rather than trusted.
		return nil, nil
	}
}

func dispositionFor(o *PolicyOverride, fallback string) string {
	if o.Reason != "" {
		return o.Reason
	}
	return fallback
}

func pendingFallback(_ context.Context, _ decisionInput) (*Decision, error) {
	return &Decision{Status: StatusPending, Disposition: DispositionPending}, nil
}
