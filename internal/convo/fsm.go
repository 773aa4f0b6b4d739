package convo

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid conversation transition")

// State is a step in the bot conversation. Every user is in exactly one
// state; unknown users are idle.
type State string

const (
	StateIdle State = "idle"

	StateTopupSelectMethod State = "topup_select_method"
	StateTopupEnterAmount  State = "topup_enter_amount"
	StateTopupEnterRef     State = "topup_enter_ref"
	StateTopupDone         State = "topup_done"

	StateOrderSelectProduct State = "order_select_product"
	StateOrderEnterQty      State = "order_enter_qty"
	StateOrderEnterTarget   State = "order_enter_target"
	StateOrderConfirm       State = "order_confirm"
	StateOrderDone          State = "order_done"
)

// Event advances the conversation.
type Event string

const (
	EventStartTopup    Event = "start_topup"
	EventChooseMethod  Event = "choose_method"
	EventEnterAmount   Event = "enter_amount"
	EventEnterRef      Event = "enter_ref"
	EventStartOrder    Event = "start_order"
	EventChooseProduct Event = "choose_product"
	EventEnterQty      Event = "enter_qty"
	EventEnterTarget   Event = "enter_target"
	EventConfirm       Event = "confirm"
	EventCancel        Event = "cancel"
)

// transitions is the full state machine. Cancel is handled separately
// in Next so it is reachable from every state without being repeated
// here.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStartTopup: StateTopupSelectMethod,
		EventStartOrder: StateOrderSelectProduct,
	},
	StateTopupSelectMethod: {
		EventChooseMethod: StateTopupEnterAmount,
	},
	StateTopupEnterAmount: {
		EventEnterAmount: StateTopupEnterRef,
	},
	StateTopupEnterRef: {
		EventEnterRef: StateTopupDone,
	},
	StateTopupDone: {
		EventStartTopup: StateTopupSelectMethod,
		EventStartOrder: StateOrderSelectProduct,
	},
	StateOrderSelectProduct: {
		EventChooseProduct: StateOrderEnterQty,
	},
	StateOrderEnterQty: {
		EventEnterQty: StateOrderEnterTarget,
	},
	StateOrderEnterTarget: {
		EventEnterTarget: StateOrderConfirm,
	},
	StateOrderConfirm: {
		EventConfirm: StateOrderDone,
	},
	StateOrderDone: {
		EventStartTopup: StateTopupSelectMethod,
		EventStartOrder: StateOrderSelectProduct,
	},
}

// Next computes the state after an event. Cancel always returns to
// idle, from any state.
func Next(cur State, ev Event) (State, error) {
	if ev == EventCancel {
		return StateIdle, nil
	}
	if cur == "" {
		cur = StateIdle
	}
	next, ok := transitions[cur][ev]
	if !ok {
		return cur, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, cur)
	}
	return next, nil
}
