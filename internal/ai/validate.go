package ai

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate checks decoded provider payloads before they cross into the
// domain. Providers return free-form JSON; nothing downstream re-checks it.
var validate = validator.New()

// validatePayload runs struct validation on a decoded provider payload and
// wraps the failure with the provider and capability for log context.
func validatePayload(provider, capability string, payload any) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%s: invalid %s payload: %w", provider, capability, err)
	}
	return nil
}
