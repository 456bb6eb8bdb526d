package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSubmit_RejectsEmptyQueueName(t *testing.T) {
	err := validateSubmit("", 0)
	assert.Error(t, err)
}

func TestValidateSubmit_AcceptsAnyInt32Priority(t *testing.T) {
	assert.NoError(t, validateSubmit("default", -2147483648))
	assert.NoError(t, validateSubmit("default", 2147483647))
}

func TestValidateRetentionDays_RejectsNegative(t *testing.T) {
	assert.Error(t, validateRetentionDays(-1))
}

func TestValidateRetentionDays_AcceptsZeroAndPositive(t *testing.T) {
	assert.NoError(t, validateRetentionDays(0))
	assert.NoError(t, validateRetentionDays(30))
}
