package aleo

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
)

// fieldModulus is 2^253 - 1.
var fieldModulus = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 253), big.NewInt(1))

// HashToField folds the UTF-8 bytes of s into a field literal with
// h = (h*31 + b) mod (2^253-1). It identifies inputs; it is not a commitment scheme.
func HashToField(s string) string {
	h := new(big.Int)
	mult := big.NewInt(31)
	b := new(big.Int)
	for i := 0; i < len(s); i++ {
		h.Mul(h, mult)
		h.Add(h, b.SetUint64(uint64(s[i])))
		h.Mod(h, fieldModulus)
	}
	return h.String() + "field"
}

// NewSalt returns 32 random bytes, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type commitmentInput struct {
	Returns []int64 `json:"returns"`
	Weights []int64 `json:"weights"`
	Salt    string  `json:"salt"`
}

// PortfolioCommitment hashes the micro-scaled returns and weights with salt.
func PortfolioCommitment(returns, weights []float64, salt string) string {
	in := commitmentInput{
		Returns: scaleAll(returns),
		Weights: scaleAll(weights),
		Salt:    salt,
	}
	b, _ := json.Marshal(in)
	return HashToField(string(b))
}

// VolatilityCommitment binds a scaled volatility to the portfolio commitment.
func VolatilityCommitment(volScaled uint64, portfolio string) string {
	return HashToField("vol:" + formatUint(volScaled) + ":" + portfolio)
}

// RiskCommitment binds a risk level code to the volatility commitment.
func RiskCommitment(level uint8, volCommitment string) string {
	return HashToField("risk:" + formatUint(uint64(level)) + ":" + volCommitment)
}

// ReportID derives a short report identifier: the first 20 characters of the
// hash of owner, unix-millis timestamp and volatility commitment, plus "...".
func ReportID(owner string, tsMillis int64, volCommitment string) string {
	h := HashToField(owner + ":" + big.NewInt(tsMillis).String() + ":" + volCommitment)
	if len(h) > 20 {
		h = h[:20]
	}
	return h + "..."
}

// IsField reports whether s looks like "<digits>field".
func IsField(s string) bool {
	digits, ok := strings.CutSuffix(s, "field")
	if !ok || digits == "" {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func scaleAll(vs []float64) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = ScaleValue(v)
	}
	return out
}
