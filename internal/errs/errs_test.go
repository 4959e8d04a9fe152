package errs_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
)

func TestQuotaErrorMessage(t *testing.T) {
	err := &errs.QuotaError{
		Quota:   errs.QuotaTotalPOIs,
		Plan:    "free",
		Current: 100,
		Limit:   100,
	}
	assert.Equal(t, `total_pois quota exceeded for plan "free": 100 of 100 used, 0 remaining`, err.Error())
}

func TestQuotaErrorMessageClampsRemaining(t *testing.T) {
	// Текущее значение может превышать лимит после понижения тарифа;
	// остаток при этом не уходит в минус.
	err := &errs.QuotaError{
		Quota:   errs.QuotaCategories,
		Plan:    "free",
		Current: 25,
		Limit:   10,
	}
	assert.Contains(t, err.Error(), "0 remaining")

	unlimited := &errs.QuotaError{
		Quota:   errs.QuotaTotalPOIs,
		Plan:    "unlimited",
		Current: 500,
		Limit:   math.Inf(1),
	}
	assert.Contains(t, unlimited.Error(), "∞ remaining")
}
