package dto

// RegisterRequest is the request body for caregiver registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

// LoginRequest is the request body for caregiver login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	CaregiverID string `json:"caregiver_id"`
	Username    string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,max=100,safe_id"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

// TopupRequest is the request body for a caregiver-funded credit.
type TopupRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	TransactionID string `json:"transaction_id" binding:"required,max=100,safe_id"`
}

// BeginTransactionRequest is the request body for starting a transaction.
type BeginTransactionRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,max=100,safe_id"`
	WalletID      string `json:"wallet_id" binding:"required,uuid"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
}

// RefundRequest is the request body for releasing a held transaction.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// ReverseRequest is the request body for reversing a settled transaction.
type ReverseRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID         string  `json:"id"`
	WalletID   string  `json:"wallet_id"`
	Amount     int64   `json:"amount"`
	State      string  `json:"state"`
	Reason     string  `json:"reason,omitempty"`
	CreatedAt  string  `json:"created_at"`
	HeldAt     *string `json:"held_at,omitempty"`
	SettledAt  *string `json:"settled_at,omitempty"`
	RefundedAt *string `json:"refunded_at,omitempty"`
	ReversedAt *string `json:"reversed_at,omitempty"`
}

// TransactionListResponse is the paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// WalletResponse is the response body for wallet creation and lookup.
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Currency  string `json:"currency"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for balance query.
type BalanceResponse struct {
	Settled   int64  `json:"settled"`
	Available int64  `json:"available"`
	Currency  string `json:"currency"`
}

// EntryResponse is a single ledger entry in a statement.
type EntryResponse struct {
	ID            string `json:"id"`
	WalletID      string `json:"wallet_id"`
	Amount        int64  `json:"amount"`
	EntryType     string `json:"entry_type"`
	TransactionID string `json:"transaction_id"`
	BalanceAfter  int64  `json:"balance_after"`
	CreatedAt     string `json:"created_at"`
}

// EntryListResponse wraps a paginated ledger statement.
type EntryListResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// AuditEventResponse is a single audit trail record.
type AuditEventResponse struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id,omitempty"`
	WalletID      string `json:"wallet_id,omitempty"`
	Action        string `json:"action"`
	PriorState    string `json:"prior_state,omitempty"`
	NewState      string `json:"new_state,omitempty"`
	Detail        string `json:"detail,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// AuditListResponse wraps a paginated audit query.
type AuditListResponse struct {
	Items      []AuditEventResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}
