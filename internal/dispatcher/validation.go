package dispatcher

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// submitRequest validates the parameters of Submit before they reach the
// store: struct tags plus one validator.Struct call.
type submitRequest struct {
	QueueName string `validate:"required,max=255"`
}

func validateSubmit(queueName string, priority int32) error {
	req := submitRequest{QueueName: queueName}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid submit request: %w", err)
	}
	return nil
}

// retentionRequest validates a cleanup call's retention window.
type retentionRequest struct {
	Days int `validate:"gte=0"`
}

func validateRetentionDays(days int) error {
	if err := validate.Struct(retentionRequest{Days: days}); err != nil {
		return fmt.Errorf("invalid retention window: %w", err)
	}
	return nil
}
