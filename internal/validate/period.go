package validate

import (
	"fmt"
	"time"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// CheckPeriod validates a transaction date against a fiscal period. Both
// boundaries are inclusive. The returned error names the violated boundary
// and the margin in days; a nil error means the date is in range. Pure, no
// side effects.
func CheckPeriod(date time.Time, period *models.FiscalPeriod) error {
	if period.Contains(date) {
		return nil
	}

	base := fmt.Sprintf("Transaction dated %s falls outside selected fiscal period %s (%s to %s)",
		date.Format("2006-01-02"), period.Label,
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))

	if date.Before(period.Start) {
		days := daysBetween(date, period.Start)
		return &models.OutOfPeriodError{
			Message: fmt.Sprintf("%s: %d day(s) before period start", base, days),
		}
	}
	days := daysBetween(period.End, date)
	return &models.OutOfPeriodError{
		Message: fmt.Sprintf("%s: %d day(s) after period end", base, days),
	}
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
