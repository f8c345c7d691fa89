package models

// TransactionsRequest is bound from GET /api/transactions.
type TransactionsRequest struct {
	Owner string `query:"owner" validate:"required,aleo_address"`
	Limit int    `query:"limit" default:"50" validate:"min=1,max=50"`
}

// ReportsRequest is bound from GET /api/reports. From and To accept RFC3339,
// a plain date or unix seconds.
type ReportsRequest struct {
	Owner string `query:"owner" validate:"required,aleo_address"`
	From  string `query:"from"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"100" validate:"min=1,max=1000"`
}

// VerifyRequest is the body of POST /api/verify.
type VerifyRequest struct {
	ProofID string `json:"proof_id" validate:"required"`
}

// ProgramInfo describes the deployed risk program.
type ProgramInfo struct {
	ProgramID string   `json:"program_id"`
	ChainID   string   `json:"chain_id"`
	Network   string   `json:"network"`
	Functions []string `json:"functions"`
	Source    string   `json:"source"`
}
