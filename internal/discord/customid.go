package discord

import (
	"strconv"
	"strings"
)

// Button custom IDs. Order IDs are UUIDs, so they never contain '_'.
const (
	ActionPay          = "pay"
	ActionCancelOrder  = "cancel_order"
	ActionCreateTicket = "create_ticket"
	ActionConfirmClose = "confirm_close_ticket"
	ActionCancelClose  = "cancel_close_ticket"
	ActionRate         = "rate"
)

type Component struct {
	Action  string
	OrderID string
	Method  string
	Rating  int
}

func PayButtonID(method, orderID string) string {
	return ActionPay + "_" + method + "_" + orderID
}

func CancelOrderButtonID(orderID string) string {
	return ActionCancelOrder + "_" + orderID
}

func RateButtonID(n int) string {
	return ActionRate + "_" + strconv.Itoa(n)
}

// ParseCustomID decodes a button custom ID. ok is false for IDs this bot
// did not create.
func ParseCustomID(id string) (c Component, ok bool) {
	switch id {
	case ActionCreateTicket, ActionConfirmClose, ActionCancelClose:
		return Component{Action: id}, true
	}

	if rest, found := strings.CutPrefix(id, ActionCancelOrder+"_"); found {
		if rest == "" {
			return Component{}, false
		}
		return Component{Action: ActionCancelOrder, OrderID: rest}, true
	}

	if rest, found := strings.CutPrefix(id, ActionPay+"_"); found {
		method, orderID, found := strings.Cut(rest, "_")
		if !found || method == "" || orderID == "" {
			return Component{}, false
		}
		return Component{Action: ActionPay, Method: method, OrderID: orderID}, true
	}

	if rest, found := strings.CutPrefix(id, ActionRate+"_"); found {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > 5 {
			return Component{}, false
		}
		return Component{Action: ActionRate, Rating: n}, true
	}

	return Component{}, false
}
