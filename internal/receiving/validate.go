package receiving

import (
	"fmt"
	"math"
)

// qtyEpsilon absorbs floating-point error in the step check, e.g. a bulk
// quantity of 0.30000000000000004 against a 0.1 step.
const qtyEpsilon = 1e-6

// ValidateLineQty checks a received quantity against the item's bulk or
// discrete policy.
//
// Bulk (loose) items must meet the minimum order quantity, and the excess
// over that minimum must be a whole multiple of the increment step. Discrete
// items must be received in whole numbers.
func ValidateLineQty(policy ItemPolicy, qty float64) error {
	if !policy.IsLoose {
		if math.Abs(qty-math.Round(qty)) > qtyEpsilon {
			return &PolicyError{
				ItemID:   policy.ID,
				ItemName: policy.Name,
				Reason:   fmt.Sprintf("quantity %g must be a whole number of %s", qty, unitLabel(policy.Unit)),
			}
		}
		return nil
	}

	if qty < policy.MinOrderQty-qtyEpsilon {
		return &PolicyError{
			ItemID:   policy.ID,
			ItemName: policy.Name,
			Reason:   fmt.Sprintf("quantity %g is below the minimum order quantity %g", qty, policy.MinOrderQty),
		}
	}
	step := policy.IncrementStep
	if step <= 0 {
		return nil
	}
	rem := math.Mod(qty-policy.MinOrderQty, step)
	if rem > qtyEpsilon && math.Abs(rem-step) > qtyEpsilon {
		return &PolicyError{
			ItemID:   policy.ID,
			ItemName: policy.Name,
			Reason:   fmt.Sprintf("quantity %g must increase from %g in steps of %g", qty, policy.MinOrderQty, step),
		}
	}
	return nil
}

func unitLabel(unit string) string {
	if unit == "" {
		return "units"
	}
	return unit
}
