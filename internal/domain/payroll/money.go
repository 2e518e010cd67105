package payroll

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to centavos.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// effectiveSlotValues keeps the values of enabled slots and zeroes the rest.
// The result always has one entry per configured slot.
func effectiveSlotValues(slots []Slot, values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(slots))
	for i, slot := range slots {
		if !slot.Enabled || i >= len(values) {
			out[i] = decimal.Zero
			continue
		}
		out[i] = values[i]
	}
	return out
}

func roundAll(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = Round2(v)
	}
	return out
}
