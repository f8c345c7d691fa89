package aleo

import (
	"regexp"
	"strings"
)

var (
	addressPattern = regexp.MustCompile(`^aleo1[a-z0-9]{58}$`)
	txIDPattern    = regexp.MustCompile(`^at1[a-z0-9]{58}$`)
)

// IsValidAddress checks the aleo1 + 58 character address format.
func IsValidAddress(addr string) bool { return addressPattern.MatchString(addr) }

// IsValidTransactionID checks the at1 + 58 character transaction ID format.
func IsValidTransactionID(id string) bool { return txIDPattern.MatchString(id) }

// ExplorerURL links a transaction on the public explorer.
func ExplorerURL(txID string) string {
	return ExplorerBaseURL + "/" + txID
}

// FormatAddress shortens an address to its first 10 and last 6 characters.
func FormatAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-6:]
}

// NetworkName is the display name of a chain ID.
func NetworkName(chainID string) string {
	if strings.EqualFold(chainID, "mainnet") {
		return "Aleo Mainnet"
	}
	return "Aleo Testnet Beta"
}
