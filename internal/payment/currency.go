package payment

import (
	"errors"
	"math"
)

var ErrInvalidAmount = errors.New("payment: amount converts to nothing chargeable")

// ToMinorUnits converts an amount in base currency units into minor units
// of the payment currency: floor(amount / rate * 100). rate is the number
// of base units per payment currency unit.
func ToMinorUnits(amount int64, rate float64) (int64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, errors.New("payment: exchange rate must be positive")
	}
	minor := int64(math.Floor(float64(amount) / rate * 100))
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}
