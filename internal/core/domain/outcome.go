package domain

// OutcomeKind classifies the result of an item search
type OutcomeKind string

const (
	// OutcomeSuccess means the API answered with a (possibly empty) item list
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeAPIError means HTTP succeeded but the body reported a failure
	OutcomeAPIError OutcomeKind = "api_error"

	// OutcomeNetworkError means the request failed in transport or returned a non-2xx status
	OutcomeNetworkError OutcomeKind = "network_error"

	// OutcomeUnexpectedError covers malformed bodies and anything else
	OutcomeUnexpectedError OutcomeKind = "unexpected_error"
)

// SearchOutcome is the explicit result of one search call. Exactly one of
// Items, Message or Err is meaningful, depending on Kind.
type SearchOutcome struct {
	Kind    OutcomeKind
	Items   []Item
	Message string
	Err     error
}

// Success builds a successful outcome
func Success(items []Item) SearchOutcome {
	if items == nil {
		items = []Item{}
	}
	return SearchOutcome{Kind: OutcomeSuccess, Items: items}
}

// APIFailure builds an outcome carrying the API's own error text
func APIFailure(message string) SearchOutcome {
	return SearchOutcome{Kind: OutcomeAPIError, Message: message}
}

// NetworkFailure builds an outcome for transport level failures
func NetworkFailure(err error) SearchOutcome {
	return SearchOutcome{Kind: OutcomeNetworkError, Err: err}
}

// UnexpectedFailure builds an outcome for everything else
func UnexpectedFailure(err error) SearchOutcome {
	return SearchOutcome{Kind: OutcomeUnexpectedError, Err: err}
}

// OK reports whether the search succeeded
func (o SearchOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Detail returns the error text, if any
func (o SearchOutcome) Detail() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Message
}
