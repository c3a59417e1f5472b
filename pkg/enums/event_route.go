package enums

// EventRoute names the handling path an inbound webhook event is classified to.
type EventRoute string

const (
	EventRouteReceipt     EventRoute = "receipt"
	EventRouteExpense     EventRoute = "expense"
	EventRouteDraft       EventRoute = "draft"
	EventRouteDispatch    EventRoute = "dispatch"
	EventRouteMatchedLink EventRoute = "matched_link"
	EventRouteIgnore      EventRoute = "ignore"
)

// String implements fmt.Stringer.
func (r EventRoute) String() string {
	return string(r)
}
