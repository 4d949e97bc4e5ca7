package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFees(t *testing.T) {
	fees, err := ComputeFees(100)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, fees.Subtotal)
	assert.Equal(t, 5.0, fees.PlatformFee)
	assert.Equal(t, 3.35, fees.ProcessorFee)
	assert.Equal(t, 108.35, fees.Total)
	assert.Equal(t, 95.0, fees.Net())
}

func TestComputeFees_RoundsEachStep(t *testing.T) {
	fees, err := ComputeFees(79.99)
	assert.NoError(t, err)
	assert.Equal(t, 4.0, fees.PlatformFee)
	assert.Equal(t, 2.74, fees.ProcessorFee)
	assert.Equal(t, 86.73, fees.Total)
}

func TestComputeFees_RejectsNonPositive(t *testing.T) {
	_, err := ComputeFees(0)
	assert.Error(t, err)

	_, err = ComputeFees(-10)
	assert.Error(t, err)
}

func TestSubtotalFor_Deposit(t *testing.T) {
	subtotal, err := SubtotalFor(PaymentTypeDeposit, 450, 0)
	assert.NoError(t, err)
	assert.Equal(t, 225.0, subtotal)

	fees, err := ComputeFees(subtotal)
	assert.NoError(t, err)
	assert.Equal(t, 11.25, fees.PlatformFee)
	assert.Equal(t, 7.15, fees.ProcessorFee)
	assert.Equal(t, 243.40, fees.Total)
}

func TestSubtotalFor_Full(t *testing.T) {
	subtotal, err := SubtotalFor(PaymentTypeFull, 450, 0)
	assert.NoError(t, err)
	assert.Equal(t, 450.0, subtotal)
}

func TestSubtotalFor_MilestoneRequiresAmount(t *testing.T) {
	_, err := SubtotalFor(PaymentTypeMilestone, 450, 0)
	assert.Error(t, err)

	subtotal, err := SubtotalFor(PaymentTypeMilestone, 450, 150)
	assert.NoError(t, err)
	assert.Equal(t, 150.0, subtotal)
}

func TestSubtotalFor_FinalCappedByQuote(t *testing.T) {
	_, err := SubtotalFor(PaymentTypeFinal, 450, 500)
	assert.Error(t, err)

	subtotal, err := SubtotalFor(PaymentTypeFinal, 450, 450)
	assert.NoError(t, err)
	assert.Equal(t, 450.0, subtotal)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(10835), MinorUnits(108.35))
	assert.Equal(t, int64(30), MinorUnits(0.30))
	assert.Equal(t, int64(100), MinorUnits(0.999))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.35, Round2(3.345))
	assert.Equal(t, 1.0, Round2(0.995))
	assert.Equal(t, 0.0, Round2(0.004))
}

func TestNewBudget(t *testing.T) {
	b, err := NewBudget(100, 500)
	assert.NoError(t, err)
	assert.True(t, b.IsInRange(100))
	assert.True(t, b.IsInRange(500))
	assert.False(t, b.IsInRange(99.99))
	assert.False(t, b.IsInRange(500.01))

	_, err = NewBudget(500, 100)
	assert.Error(t, err)

	_, err = NewBudget(-1, 100)
	assert.Error(t, err)
}
