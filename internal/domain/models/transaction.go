package models

// TxState is the lifecycle state of a handed-off transaction.
type TxState string

const (
	TxPending   TxState = "pending"
	TxConfirmed TxState = "confirmed"
	TxFailed    TxState = "failed"
)

// Transition is a single program function call inside a transaction.
type Transition struct {
	Program      string   `json:"program"`
	FunctionName string   `json:"functionName"`
	Inputs       []string `json:"inputs"`
}

// Transaction is the plain data object built for the risk program.
type Transaction struct {
	Address     string       `json:"address"`
	ChainID     string       `json:"chainId"`
	Transitions []Transition `json:"transitions"`
	Fee         int64        `json:"fee"`
	FeePrivate  bool         `json:"feePrivate"`
}

// Function returns the function name of the first transition, or "".
func (t Transaction) Function() string {
	if len(t.Transitions) == 0 {
		return ""
	}
	return t.Transitions[0].FunctionName
}

// TransactionStatus is what the log records for each hand-off.
type TransactionStatus struct {
	TxID          string  `json:"tx_id"`
	Function      string  `json:"function,omitempty"`
	Status        TxState `json:"status"`
	BlockHeight   *int64  `json:"block_height,omitempty"`
	Confirmations *int    `json:"confirmations,omitempty"`
	ExplorerURL   string  `json:"explorer_url"`
}

// VerificationResult answers a proof lookup.
type VerificationResult struct {
	ProofID    string    `json:"proof_id"`
	Status     string    `json:"status"` // "verified" | "invalid"
	Reason     string    `json:"reason,omitempty"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	RiskLevel  RiskLevel `json:"risk_level,omitempty"`
}
