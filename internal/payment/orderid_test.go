package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderID_RoundTrip(t *testing.T) {
	planID := uuid.New()
	userID := uuid.New()

	orderID := MakeOrderID(planID, userID, time.Unix(1700000000, 0))
	assert.Equal(t, fmt.Sprintf("plan_%s_user_%s_1700000000", planID, userID), orderID)

	gotPlan, gotUser, err := ParseOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, planID, gotPlan)
	assert.Equal(t, userID, gotUser)
}

// Исторический формат содержал токен длительности после плана;
// разбор по маркерам должен его переживать
func TestParseOrderID_LegacyFormat(t *testing.T) {
	planID := uuid.New()
	userID := uuid.New()
	legacy := fmt.Sprintf("plan_%s_month_user_%s_1700000000", planID, userID)

	gotPlan, gotUser, err := ParseOrderID(legacy)
	require.NoError(t, err)
	assert.Equal(t, planID, gotPlan)
	assert.Equal(t, userID, gotUser)
}

func TestParseOrderID_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
	}{
		{"Empty string", ""},
		{"Foreign order id", "invoice-12345"},
		{"Missing user marker", fmt.Sprintf("plan_%s_1700000000", uuid.New())},
		{"Missing plan marker", fmt.Sprintf("user_%s_1700000000", uuid.New())},
		{"Plan id is not a uuid", fmt.Sprintf("plan_42_user_%s_1700000000", uuid.New())},
		{"User id is not a uuid", fmt.Sprintf("plan_%s_user_42_1700000000", uuid.New())},
		{"Markers without values", "plan_user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseOrderID(tt.orderID)
			assert.ErrorIs(t, err, ErrMalformedOrderID)
		})
	}
}
