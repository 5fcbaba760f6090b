package resource

// Scope names as granted by Ramp.
const (
	ScopeTransactions   = "transactions:read"
	ScopeReceipts       = "receipts:read"
	ScopeReimbursements = "reimbursements:read"
	ScopeBills          = "bills:read"
	ScopeLocations      = "locations:read"
	ScopeDepartments    = "departments:read"
	ScopeBankAccounts   = "bank_accounts:read"
	ScopeVendors        = "vendors:read"
	ScopeEntities       = "entities:read"
	ScopeLimits         = "limits:read"
	ScopeSpendPrograms  = "spend_programs:read"
	ScopeUsers          = "users:read"
)

// DefaultScopes are granted when none are given on the command line.
var DefaultScopes = []string{ScopeTransactions, ScopeReimbursements, ScopeBills}

// AmountNote is appended to tool descriptions of resources that carry money.
const AmountNote = "Amount columns are decimal numbers in the major unit of their currency " +
	"(e.g. dollars, not cents); amounts in other currencies are not converted."

var (
	fromDate = Filter{Name: "from_date", Param: "from_date", Type: FilterDate, Required: true,
		Description: "Start date (inclusive), YYYY-MM-DD"}
	toDate = Filter{Name: "to_date", Param: "to_date", Type: FilterDate, Required: true, EndOfRange: true,
		Description: "End date (inclusive), YYYY-MM-DD"}
	userID = Filter{Name: "user_id", Param: "user_id", Type: FilterString,
		Description: "Only records belonging to this Ramp user id"}
	entityID = Filter{Name: "entity_id", Param: "entity_id", Type: FilterString,
		Description: "Only records of this business entity id"}
	syncReady = Filter{Name: "sync_ready", Param: "sync_ready", Type: FilterBool,
		Description: "Only records that are ready to sync to the accounting system"}
	categoryIDs = Filter{Name: "ramp_category_ids", Param: "sk_category_ids", Type: FilterStrings,
		Description: "Ramp category ids (see get_ramp_categories)"}
)

var catalog = []Descriptor{
	{
		Name:        "transactions",
		Tool:        "load_transactions",
		Description: "Card transactions, sorted by amount in descending order.",
		Scopes:      []string{ScopeTransactions},
		Path:        "/transactions",
		Columns: cols(
			[]Column{
				col("id", Text),
				{Name: "amount", Path: []string{"amount"}, Kind: Amount, CurrencyPath: []string{"currency_code"}},
				col("currency_code", Text),
				col("user_transaction_time", Time),
				col("settlement_date", Time),
				col("state", Text),
				col("memo", Text),
				col("merchant_id", Text),
				col("merchant_name", Text),
				col("merchant_descriptor", Text),
				col("merchant_category_code", Text),
				col("sk_category_id", Integer),
				col("sk_category_name", Text),
				col("card_id", Text),
				col("card_holder__user_id", Text),
				col("card_holder__first_name", Text),
				col("card_holder__last_name", Text),
				col("card_holder__department_id", Text),
				col("card_holder__department_name", Text),
				col("card_holder__location_id", Text),
				col("card_holder__location_name", Text),
				col("entity_id", Text),
				col("spend_program_id", Text),
				col("limit_id", Text),
			},
			money("original_transaction_amount"),
			[]Column{
				col("receipts", List),
				col("accounting_field_selections", JSON),
				col("policy_violations", JSON),
			},
		),
		Filters: []Filter{
			fromDate, toDate, userID, categoryIDs, syncReady,
			{Name: "card_id", Param: "card_id", Type: FilterString, Description: "Only transactions on this card id"},
			{Name: "order_by_amount_desc", Param: "order_by_amount_desc", Type: FilterBool, Fixed: true},
		},
	},
	{
		Name:        "receipts",
		Tool:        "load_receipts",
		Description: "Receipts attached to transactions.",
		Scopes:      []string{ScopeReceipts},
		Path:        "/receipts",
		Columns: []Column{
			col("id", Text),
			col("transaction_id", Text),
			col("user_id", Text),
			col("created_at", Time),
			col("receipt_url", Text),
		},
		Filters: []Filter{
			fromDate, toDate,
			{Name: "transaction_id", Param: "transaction_id", Type: FilterString, Description: "Only receipts of this transaction id"},
			{Name: "created_after", Param: "created_after", Type: FilterDate, Description: "Only receipts created on or after this date, YYYY-MM-DD"},
			{Name: "created_before", Param: "created_before", Type: FilterDate, EndOfRange: true, Description: "Only receipts created on or before this date, YYYY-MM-DD"},
		},
	},
	{
		Name:        "reimbursements",
		Tool:        "load_reimbursements",
		Description: "Out-of-pocket reimbursements and repayments.",
		Scopes:      []string{ScopeReimbursements},
		Path:        "/reimbursements",
		Columns: cols(
			[]Column{
				col("id", Text),
				{Name: "amount", Path: []string{"amount"}, Kind: Amount, CurrencyPath: []string{"currency"}},
				col("currency", Text),
				col("created_at", Time),
				col("transaction_date", Text),
				col("merchant", Text),
				col("memo", Text),
				col("state", Text),
				col("type", Text),
				col("direction", Text),
				col("user_id", Text),
				col("user_email", Text),
				col("user_full_name", Text),
				col("entity_id", Text),
				col("spend_limit_id", Text),
				col("distance", Real),
			},
			money("original_reimbursement_amount"),
			[]Column{
				col("receipts", List),
				col("line_items", JSON),
				col("accounting_field_selections", JSON),
			},
		),
		Filters: []Filter{
			fromDate, toDate, syncReady, userID,
			{Name: "direction", Param: "direction", Type: FilterString, Enum: []string{"BUSINESS_TO_USER", "USER_TO_BUSINESS"},
				Description: "Money flow direction"},
		},
	},
	{
		Name:        "bills",
		Tool:        "load_bills",
		Description: "Bills (accounts payable), filtered by creation date.",
		Scopes:      []string{ScopeBills},
		Path:        "/bills",
		Columns: cols(
			[]Column{
				col("id", Text),
				col("invoice_number", Text),
			},
			money("amount"),
			[]Column{
				col("status", Text),
				col("approval_status", Text),
				col("payment_status", Text),
				col("memo", Text),
				col("created_at", Time),
				col("issued_at", Time),
				col("due_at", Time),
				col("paid_at", Time),
				col("entity_id", Text),
				col("vendor__id", Text),
				col("vendor__remote_name", Text),
				col("bill_owner__id", Text),
				col("bill_owner__first_name", Text),
				col("bill_owner__last_name", Text),
				col("payment__payment_method", Text),
				col("payment__payment_date", Time),
				col("line_items", JSON),
				col("accounting_field_selections", JSON),
			},
		),
		Filters: []Filter{
			{Name: "from_date", Param: "from_created_at", Type: FilterDate, Required: true, Description: "Created on or after, YYYY-MM-DD"},
			{Name: "to_date", Param: "to_created_at", Type: FilterDate, Required: true, EndOfRange: true, Description: "Created on or before, YYYY-MM-DD"},
			userID, syncReady,
			{Name: "payment_status", Param: "payment_status", Type: FilterString, Enum: []string{"OPEN", "PAID"},
				Description: "Bill payment status"},
		},
	},
	{
		Name:        "locations",
		Tool:        "load_locations",
		Description: "Business locations.",
		Scopes:      []string{ScopeLocations},
		Path:        "/locations",
		Columns: []Column{
			col("id", Text),
			col("name", Text),
			col("entity_id", Text),
		},
		Filters: []Filter{entityID},
	},
	{
		Name:        "departments",
		Tool:        "load_departments",
		Description: "Departments.",
		Scopes:      []string{ScopeDepartments},
		Path:        "/departments",
		Columns: []Column{
			col("id", Text),
			col("name", Text),
		},
	},
	{
		Name:        "bank_accounts",
		Tool:        "load_bank_accounts",
		Description: "Bank accounts of the business and its entities.",
		Scopes:      []string{ScopeBankAccounts},
		Path:        "/bank-accounts",
		Columns: []Column{
			col("id", Text),
			col("name", Text),
			col("account_last_four", Text),
			col("entity_id", Text),
			col("is_primary", Bool),
			col("created_at", Time),
		},
	},
	{
		Name:        "vendors",
		Tool:        "load_vendors",
		Description: "Vendors. Usually only active vendors are interesting.",
		Scopes:      []string{ScopeVendors},
		Path:        "/vendors",
		Columns: cols(
			[]Column{
				col("id", Text),
				col("name", Text),
				col("is_active", Bool),
				col("created_at", Time),
				col("sk_category_id", Integer),
				col("sk_category_name", Text),
				col("country", Text),
			},
			money("total_spend_all_time"),
			money("total_spend_last_month"),
			money("total_spend_ytd"),
		),
		Filters: []Filter{
			categoryIDs,
			{Name: "is_active", Param: "is_active", Type: FilterBool, Description: "Only active (true) or inactive (false) vendors"},
			{Name: "name", Param: "name", Type: FilterString, Description: "Vendor name"},
			{Name: "from_created_at", Param: "from_created_at", Type: FilterDate, Description: "Created on or after, YYYY-MM-DD"},
			{Name: "to_created_at", Param: "to_created_at", Type: FilterDate, EndOfRange: true, Description: "Created on or before, YYYY-MM-DD"},
		},
	},
	{
		Name:        "vendor_bank_accounts",
		Tool:        "load_vendor_bank_accounts",
		Description: "Bank accounts of one vendor.",
		Scopes:      []string{ScopeVendors},
		Path:        "/vendors/{vendor_id}/accounts",
		Columns: []Column{
			col("id", Text),
			col("name", Text),
			col("type", Text),
			col("is_default", Bool),
			col("account_last_four", Text),
			col("routing_number", Text),
			col("created_at", Time),
		},
		Filters: []Filter{
			{Name: "vendor_id", Type: FilterString, Required: true, InPath: true, Description: "Vendor id"},
		},
	},
	{
		Name:        "entities",
		Tool:        "load_entities",
		Description: "Business entities.",
		Scopes:      []string{ScopeEntities},
		Path:        "/entities",
		Columns: []Column{
			col("id", Text),
			col("entity_name", Text),
			col("currency", Text),
			col("is_primary", Bool),
			col("created_at", Time),
		},
		Filters: []Filter{
			{Name: "entity_name", Param: "entity_name", Type: FilterString, Description: "Entity name"},
		},
	},
	{
		Name:        "spend_limits",
		Tool:        "load_spend_limits",
		Description: "Spend limits (funds) and their balances.",
		Scopes:      []string{ScopeLimits},
		Path:        "/limits",
		Columns: cols(
			[]Column{
				col("id", Text),
				col("display_name", Text),
				col("state", Text),
				col("entity_id", Text),
				col("spend_program_id", Text),
				col("created_at", Time),
				col("restrictions__interval", Text),
			},
			money("restrictions__limit"),
			money("balance__cleared"),
			money("balance__pending"),
			money("balance__total"),
			[]Column{
				col("users", JSON),
				col("cards", JSON),
			},
		),
		Filters: []Filter{userID},
	},
	{
		Name:        "spend_programs",
		Tool:        "load_spend_programs",
		Description: "Spend programs (templates for spend limits).",
		Scopes:      []string{ScopeSpendPrograms},
		Path:        "/spend-programs",
		Columns: cols(
			[]Column{
				col("id", Text),
				col("display_name", Text),
				col("description", Text),
				col("icon", Text),
				col("is_shareable", Bool),
				col("issue_physical_card_if_needed", Bool),
				col("restrictions__interval", Text),
			},
			money("restrictions__limit"),
			[]Column{
				col("permitted_spend_types", JSON),
			},
		),
	},
	{
		Name:        "users",
		Tool:        "load_users",
		Description: "Users of the Ramp business.",
		Scopes:      []string{ScopeUsers},
		Path:        "/users",
		Columns: []Column{
			col("id", Text),
			col("email", Text),
			col("first_name", Text),
			col("last_name", Text),
			col("role", Text),
			col("status", Text),
			col("phone", Text),
			col("is_manager", Bool),
			col("manager_id", Text),
			col("department_id", Text),
			col("location_id", Text),
			col("entity_id", Text),
			col("employee_id", Text),
		},
		Filters: []Filter{
			{Name: "email", Param: "email", Type: FilterString, Description: "User email"},
			{Name: "role", Param: "role", Type: FilterString,
				Enum:        []string{"IT_ADMIN", "BUSINESS_ADMIN", "BUSINESS_OWNER", "BUSINESS_USER", "GUEST_USER"},
				Description: "User role"},
		},
	},
	{
		Name: "spend_export",
		Tool: "load_spend_export",
		Description: "All spend events (card transactions, reimbursements, bills). " +
			"Prefer this over loading transactions, reimbursements and bills separately.",
		Scopes: []string{ScopeTransactions, ScopeReimbursements, ScopeBills},
		Path:   "/spend-export",
		Columns: []Column{
			col("id", Text),
			col("type", Text),
			{Name: "amount", Path: []string{"amount"}, Kind: Amount, CurrencyPath: []string{"currency_code"}},
			col("currency_code", Text),
			col("transaction_date", Time),
			col("merchant_name", Text),
			col("memo", Text),
			col("state", Text),
			col("user_id", Text),
			col("user_full_name", Text),
			col("department_name", Text),
			col("entity_id", Text),
			col("sk_category_name", Text),
			col("accounting_field_selections", JSON),
		},
		Filters: []Filter{fromDate, toDate},
	},
}
