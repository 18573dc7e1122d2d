package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldBillID        = "bill_id"
	FieldRecurringID   = "recurring_id"
	FieldBudgetID      = "budget_id"
	FieldGoalID        = "goal_id"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldDueDate       = "due_date"
	FieldFrequency     = "frequency"
	FieldOperation     = "operation"
	FieldCount         = "count"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentLedger    = "ledger"
	ComponentBills     = "bills"
	ComponentRecurring = "recurring"
	ComponentBudget    = "budget"
	ComponentGoal      = "goal"
	ComponentSummary   = "summary"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpApply    = "apply"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
