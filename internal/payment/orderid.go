package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedOrderID идентификатор заказа не удалось разобрать
var ErrMalformedOrderID = errors.New("malformed order id")

// MakeOrderID строит идентификатор заказа для криптоплатежа.
// Формат: plan_{planID}_user_{userID}_{unix}.
func MakeOrderID(planID, userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("plan_%s_user_%s_%d", planID, userID, now.Unix())
}

// ParseOrderID извлекает план и пользователя из идентификатора заказа.
// Разбор идет по маркерам "plan" и "user", а не по фиксированным
// позициям, поэтому переживает и исторический формат с токеном "month"
// после идентификатора плана. UUID не содержат подчеркиваний, так что
// деление по "_" безопасно.
func ParseOrderID(orderID string) (planID, userID uuid.UUID, err error) {
	parts := strings.Split(orderID, "_")

	planRaw := valueAfterMarker(parts, "plan")
	userRaw := valueAfterMarker(parts, "user")
	if planRaw == "" || userRaw == "" {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrMalformedOrderID, orderID)
	}

	planID, err = uuid.Parse(planRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid plan id in %q", ErrMalformedOrderID, orderID)
	}
	userID, err = uuid.Parse(userRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid user id in %q", ErrMalformedOrderID, orderID)
	}

	return planID, userID, nil
}

func valueAfterMarker(parts []string, marker string) string {
	for i, p := range parts {
		if p == marker && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
