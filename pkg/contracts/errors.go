package contracts

import (
	"errors"
)

// ErrContractViolation marks parameters that break their provider contract.
var ErrContractViolation = errors.New("parameter contract violation")

// IsContractViolation checks if an error is a contract violation.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}
