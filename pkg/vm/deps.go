package vm

import (
	"strconv"

	"github.com/momodeve/mslvm/pkg/bigint"
)

// parseDependencyInt converts a PUSH_INTEGER dependency-pool literal into a
// BigInteger, per spec §4.F "Pushes".
func parseDependencyInt(s string) (bigint.Int, error) {
	return bigint.Parse(s)
}

// parseDependencyFloat converts a PUSH_FLOAT dependency-pool literal.
func parseDependencyFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
