package validate_test

import (
	"testing"

	"github.com/ardanlabs/blockbank/business/sys/validate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submit struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required,nefield=From"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

func TestCheck(t *testing.T) {
	err := validate.Check(submit{From: "alice", To: "bob", Amount: decimal.NewFromInt(5)})
	assert.NoError(t, err)

	err = validate.Check(submit{From: "alice", To: "alice", Amount: decimal.Zero})
	require.Error(t, err)
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	assert.Contains(t, fields, "to")
	assert.Contains(t, fields, "amount")
	assert.NotContains(t, fields, "from")
}
