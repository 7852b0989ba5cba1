package stage

import (
	"errors"

	"herald/internal/services"
)

// SystemicFailure inspects per-item errors after a fan-out and decides
// whether the stage as a whole failed. Individual failures are isolated; the
// job only dies when every item failed and at least one failure points at the
// collaborator itself rather than at an item's input.
func SystemicFailure(itemErrors []error) error {
	if len(itemErrors) == 0 {
		return nil
	}

	var candidate error
	for _, err := range itemErrors {
		if err == nil {
			return nil
		}
		if isServiceLevel(err) && candidate == nil {
			candidate = err
		}
	}
	return candidate
}

func isServiceLevel(err error) bool {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound):
		return false
	default:
		return true
	}
}
