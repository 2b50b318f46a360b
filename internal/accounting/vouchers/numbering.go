package vouchers

import (
	"context"
	"fmt"
	"time"
)

// Prefix returns the number prefix for a voucher kind and type.
func Prefix(kind Kind, typ Type) string {
	switch kind {
	case KindJournal:
		return "JV"
	case KindTransaction:
		if typ == TypePayment {
			return "PV"
		}
		return "RV"
	case KindBatch:
		if typ == TypePayment {
			return "BPV"
		}
		return "BRV"
	}
	return "V"
}

// FiscalYear labels the fiscal year containing date by the calendar year in
// which it ends. startMonth 7 places 2024-07-01..2025-06-30 in 2025.
func FiscalYear(date time.Time, startMonth time.Month) int {
	if startMonth <= time.January || startMonth > time.December {
		return date.Year()
	}
	if date.Month() >= startMonth {
		return date.Year() + 1
	}
	return date.Year()
}

// Numberer assigns voucher numbers from the transactional counter.
type Numberer struct {
	StartMonth time.Month
}

// Assign draws the next number for v. Batch vouchers are sequenced per fiscal
// year, every other kind per prefix.
func (n Numberer) Assign(ctx context.Context, st Store, v Voucher) (string, error) {
	prefix := Prefix(v.Kind, v.Type)
	if v.Kind != KindBatch {
		seq, err := st.NextSequence(ctx, prefix, 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s-%04d", prefix, seq), nil
	}
	fy := FiscalYear(v.Date, n.StartMonth)
	seq, err := st.NextSequence(ctx, prefix, fy)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, fy, seq), nil
}
