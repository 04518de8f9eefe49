package order

// TransitionEffects declares the side-effect fields written together with a
// status. The table below is closed: every recognized state appears exactly
// once, so a new state cannot be added without declaring its effects.
type TransitionEffects struct {
	// MarkDelivered sets isDelivered and stamps deliveredAt. When false the
	// delivery markers are cleared: a non-delivered order cannot keep a
	// delivery timestamp.
	MarkDelivered bool
	// MarkPaid forces isPaid/paidAt/paymentStatus to paid. Delivery implies
	// payment completion (cash collected at handoff); no other transition
	// touches payment fields.
	MarkPaid bool
}

var transitions = map[Status]TransitionEffects{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusShipped:   {},
	StatusDelivered: {MarkDelivered: true, MarkPaid: true},
	StatusCancelled: {},
	StatusFailed:    {},
}

// ParseTransition validates a raw target status and returns its declared
// side effects. Backward moves are allowed: the machine does not enforce
// forward-only ordering, administrators may move an order back.
func ParseTransition(raw string) (Status, TransitionEffects, error) {
	st := Status(raw)
	fx, ok := transitions[st]
	if !ok {
		return "", TransitionEffects{}, &InvalidStatusError{Value: raw}
	}
	return st, fx, nil
}
