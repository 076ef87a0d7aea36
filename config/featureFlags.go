package config

import (
	"os"
	"strings"
)

// StrictAmountIntegrity upgrades ledger integrity warnings (negative amounts,
// unknown transaction kinds found in stored rows) to hard errors instead of
// skip-and-log.
//
// Set via env:
// - STRICT_AMOUNT_INTEGRITY=true
func StrictAmountIntegrity() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_AMOUNT_INTEGRITY")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DisableContraCompensation turns off the compensating delete of the first
// transfer leg when the second leg fails to persist. Only useful in test
// environments that want to observe orphaned legs.
//
// Set via env:
// - DISABLE_CONTRA_COMPENSATION=true
func DisableContraCompensation() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_CONTRA_COMPENSATION")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
