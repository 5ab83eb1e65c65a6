package validate_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/validate"
	"github.com/stretchr/testify/require"
)

type spend struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
}

func TestCheck(t *testing.T) {
	require.NoError(t, validate.Check(spend{From: "1a", To: "1b", Amount: "10.5"}))

	err := validate.Check(spend{From: "1a", Amount: "ten"})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Len(t, fields, 2)
	require.Contains(t, fields, "to")
	require.Contains(t, fields, "amount")
	require.Equal(t, "to is a required field", fields["to"])
}
