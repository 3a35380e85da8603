package linking

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State names a step of the bank-link flow. Each state marks the last step
// that completed; a StepError carries the state the flow was attempting.
type State string

const (
	StateStarted               State = "started"
	StateTokenExchanged        State = "token_exchanged"
	StateAccountSelected       State = "account_selected"
	StateProcessorTokenCreated State = "processor_token_created"
	StateFundingSourceCreated  State = "funding_source_created"
	StateLinkPersisted         State = "link_persisted"
	StateDone                  State = "done"
	StateFailed                State = "failed"
)

// flow tracks progress through the linking steps and mirrors each
// transition onto the active trace span.
type flow struct {
	state State
	span  trace.Span
}

func newFlow(span trace.Span) *flow {
	f := &flow{span: span}
	f.advance(StateStarted)
	return f
}

// advance moves the flow to the next state and records it as a span event.
func (f *flow) advance(next State) {
	f.state = next
	f.span.AddEvent("linking.state", trace.WithAttributes(
		attribute.String("state", string(next)),
	))
}

// fail marks the flow failed and wraps err with the state it was in when
// the step broke.
func (f *flow) fail(err error) *StepError {
	failedAt := f.state
	f.advance(StateFailed)
	return &StepError{State: failedAt, Err: err}
}
