package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fy2324() *models.FiscalPeriod {
	return &models.FiscalPeriod{
		ID:     "fy-2324",
		Label:  "FY2023-2024",
		Start:  day(2023, time.April, 1),
		End:    day(2024, time.March, 31),
	}
}

func TestCheckPeriod_InclusiveBoundaries(t *testing.T) {
	period := fy2324()

	assert.NoError(t, CheckPeriod(day(2023, time.April, 1), period), "period start is inclusive")
	assert.NoError(t, CheckPeriod(day(2024, time.March, 31), period), "period end is inclusive")
	assert.NoError(t, CheckPeriod(day(2023, time.October, 15), period))
}

func TestCheckPeriod_AfterEnd(t *testing.T) {
	period := fy2324()

	err := CheckPeriod(day(2024, time.April, 1), period)
	require.Error(t, err)

	var oop *models.OutOfPeriodError
	require.True(t, errors.As(err, &oop))
	assert.Contains(t, oop.Message, "Transaction dated 2024-04-01 falls outside selected fiscal period FY2023-2024 (2023-04-01 to 2024-03-31)")
	assert.Contains(t, oop.Message, "1 day(s) after period end")
}

func TestCheckPeriod_BeforeStart(t *testing.T) {
	period := fy2324()

	err := CheckPeriod(day(2023, time.March, 2), period)
	require.Error(t, err)

	var oop *models.OutOfPeriodError
	require.True(t, errors.As(err, &oop))
	assert.Contains(t, oop.Message, "30 day(s) before period start")
}

func TestCheckPeriod_FarOutside(t *testing.T) {
	period := fy2324()

	err := CheckPeriod(day(2024, time.May, 15), period)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "45 day(s) after period end")
}
