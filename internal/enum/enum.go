package enum

// Order lifecycle statuses. CHECK constrained in the DB.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Account roles. CHECK constrained in the DB.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// WebSocket event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventAcceptanceChanged  = "canteen.acceptance_changed"
)
