package deadlines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeElectronicShortPeriod(t *testing.T) {
	// Scenario 1: trigger=2025-03-10 (Mon), period=14, electronic -> due=2025-03-24 (Mon), short.
	res, err := Compute(Request{
		TriggerDate:   date(2025, time.March, 10),
		PeriodDays:    14,
		ServiceMethod: models.ServiceElectronic,
	})
	require.NoError(t, err)
	assert.True(t, res.DueDate.Equal(date(2025, time.March, 24)))
	assert.True(t, res.IsShortPeriod)
	assert.Contains(t, res.ComputationNotes, "+0 days")
}

func TestComputeMailLandingWeekday(t *testing.T) {
	// Scenario 2: trigger=2024-05-20 (Mon), period=14, mail -> total=17, raw landing 2024-06-06 (Thu) -> due same day.
	res, err := Compute(Request{
		TriggerDate:   date(2024, time.May, 20),
		PeriodDays:    14,
		ServiceMethod: models.ServiceMail,
	})
	require.NoError(t, err)
	assert.True(t, res.DueDate.Equal(date(2024, time.June, 6)))
	assert.Equal(t, time.Thursday, res.DueDate.Weekday())
	assert.False(t, res.IsShortPeriod)
}

func TestComputeMailPeriod15LandsFriday(t *testing.T) {
	res, err := Compute(Request{
		TriggerDate:   date(2024, time.May, 20),
		PeriodDays:    15,
		ServiceMethod: models.ServiceMail,
	})
	require.NoError(t, err)
	assert.True(t, res.DueDate.Equal(date(2024, time.June, 7)))
	assert.Equal(t, time.Friday, res.DueDate.Weekday())
}

func TestComputeLandingOnThanksgivingRollsToFriday(t *testing.T) {
	// Scenario 3: trigger=2024-11-14 (Thu), period=14, electronic -> raw 2024-11-28 (Thanksgiving) -> due 2024-11-29 (Fri).
	res, err := Compute(Request{
		TriggerDate:   date(2024, time.November, 14),
		PeriodDays:    14,
		ServiceMethod: models.ServiceElectronic,
	})
	require.NoError(t, err)
	assert.True(t, res.DueDate.Equal(date(2024, time.November, 29)))
}

func TestComputeRejectsNegativePeriod(t *testing.T) {
	_, err := Compute(Request{
		TriggerDate:   date(2024, time.January, 1),
		PeriodDays:    -1,
		ServiceMethod: models.ServiceElectronic,
	})
	require.Error(t, err)
}

func TestComputeInvariants(t *testing.T) {
	trigger := date(2024, time.March, 1)
	for period := 0; period < 60; period++ {
		for _, method := range []models.ServiceMethod{models.ServiceElectronic, models.ServiceMail, models.ServicePersonalDelivery, models.ServiceLeaveWithClerk, models.ServiceOther} {
			res, err := Compute(Request{TriggerDate: trigger, PeriodDays: period, ServiceMethod: method})
			require.NoError(t, err)
			assert.True(t, res.DueDate.After(trigger) || res.DueDate.Equal(trigger.AddDate(0, 0, 1)))
			assert.NotEqual(t, time.Saturday, res.DueDate.Weekday())
			assert.NotEqual(t, time.Sunday, res.DueDate.Weekday())
			assert.False(t, IsFederalHoliday(res.DueDate))
		}
	}
}

func TestFederalHolidays2024Observed(t *testing.T) {
	holidays := FederalHolidays(2024)
	assert.Contains(t, holidays, date(2024, time.January, 1))
	assert.Contains(t, holidays, date(2024, time.November, 28)) // Thanksgiving 4th Thursday
	assert.Contains(t, holidays, date(2024, time.June, 19))
	assert.Contains(t, holidays, date(2024, time.December, 25))
}

func TestJuneteenthObservedWhenOnWeekend(t *testing.T) {
	// June 19, 2027 is a Saturday; observed on preceding Friday June 18.
	assert.True(t, IsFederalHoliday(date(2027, time.June, 18)))
	assert.False(t, IsFederalHoliday(date(2027, time.June, 19)))
}

func TestIsBusinessDay(t *testing.T) {
	assert.False(t, IsBusinessDay(date(2024, time.November, 28))) // Thanksgiving
	assert.False(t, IsBusinessDay(date(2024, time.November, 30))) // Saturday
	assert.True(t, IsBusinessDay(date(2024, time.November, 26)))  // ordinary Tuesday
}
