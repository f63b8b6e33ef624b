package order

// OrderState implements the state pattern for order lifecycle transitions.
// Pending → Processing → Shipped → Delivered; every non-terminal state may move to Canceled.
type OrderState interface {
	Status() Status
	To(o *Order, next Status) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusProcessing:
		return processingState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCanceled:
		return canceledState{}, nil
	default:
		return nil, ErrInvalidStatus
	}
}

// CanTransition reports whether from → to is a legal move. Re-asserting a non-terminal status is allowed.
func CanTransition(from, to Status) bool {
	st, err := stateFor(from)
	if err != nil {
		return false
	}
	_, err = st.To(&Order{Status: from}, to)
	return err == nil
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) To(_ *Order, next Status) (OrderState, error) {
	switch next {
	case StatusPending:
		return pendingState{}, nil
	case StatusProcessing:
		return processingState{}, nil
	case StatusCanceled:
		return canceledState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (processingState) To(_ *Order, next Status) (OrderState, error) {
	switch next {
	case StatusProcessing:
		return processingState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusCanceled:
		return canceledState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

type shippedState struct{}

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) To(_ *Order, next Status) (OrderState, error) {
	switch next {
	case StatusShipped:
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCanceled:
		return canceledState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) To(*Order, Status) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

type canceledState struct{}

func (canceledState) Status() Status { return StatusCanceled }

func (canceledState) To(*Order, Status) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

// AllowedFrom lists the statuses from which next is reachable. Storage adapters use it to make
// the check and the write a single conditional update.
func AllowedFrom(next Status) []Status {
	var from []Status
	for _, s := range Statuses {
		if CanTransition(s, next) {
			from = append(from, s)
		}
	}
	return from
}
