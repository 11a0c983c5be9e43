package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

func TestValidatorReportsJSONFieldNames(t *testing.T) {
	err := appErrors.Validation(NewValidator().Struct(dto.VerifyPaymentRequest{OrderID: "order_1"}), "invalid verification payload")

	require.Len(t, err.Fields, 2)
	assert.Equal(t, "razorpay_payment_id", err.Fields[0].Field)
	assert.Equal(t, "razorpay_signature", err.Fields[1].Field)
	assert.Equal(t, "required", err.Fields[1].Rule)
}
