package valueobject

import (
	"fmt"
	"math"

	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
)

// Fee rates reproduced exactly from the original platform contract.
// All intermediate amounts are rounded to cents before summing, so the
// stored breakdown is reproducible and never re-derived implicitly.
const (
	PlatformFeeRate   = 0.05
	ProcessorFeeRate  = 0.029
	ProcessorFeeFixed = 0.30
	DepositFraction   = 0.5
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinorUnits converts a dollar amount to integer cents for the gateway
// boundary.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}

type Money struct {
	Amount   float64
	Currency string
}

func NewMoney(amount float64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "amount cannot be negative")
	}
	if currency == "" {
		currency = "CAD"
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// FeeBreakdown is the stored amount decomposition of a payment. Each field
// is computed once and persisted; total is the sum of the other three.
type FeeBreakdown struct {
	Subtotal     float64
	PlatformFee  float64
	ProcessorFee float64
	Total        float64
}

// ComputeFees derives the full fee breakdown for a given subtotal:
// platformFee = round2(subtotal * 5%), processorFee = round2((subtotal +
// platformFee) * 2.9% + 0.30), total = subtotal + platformFee + processorFee.
func ComputeFees(subtotal float64) (FeeBreakdown, error) {
	if subtotal <= 0 {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation, "subtotal must be positive")
	}
	subtotal = Round2(subtotal)
	platformFee := Round2(subtotal * PlatformFeeRate)
	processorFee := Round2((subtotal+platformFee)*ProcessorFeeRate + ProcessorFeeFixed)
	return FeeBreakdown{
		Subtotal:     subtotal,
		PlatformFee:  platformFee,
		ProcessorFee: processorFee,
		Total:        Round2(subtotal + platformFee + processorFee),
	}, nil
}

// SubtotalFor maps a payment phase onto the quoted amount: deposits charge
// half the quote, full payments the whole quote. Milestone and final phases
// take an explicit amount from the caller.
func SubtotalFor(paymentType PaymentType, quoteAmount, explicitAmount float64) (float64, error) {
	switch paymentType {
	case PaymentTypeDeposit:
		return Round2(quoteAmount * DepositFraction), nil
	case PaymentTypeFull:
		return quoteAmount, nil
	case PaymentTypeMilestone, PaymentTypeFinal:
		if explicitAmount <= 0 {
			return 0, apperror.New(apperror.ErrCodeValidation, "amount is required for milestone and final payments")
		}
		if explicitAmount > quoteAmount {
			return 0, apperror.New(apperror.ErrCodeValidation, "amount cannot exceed the quoted amount")
		}
		return Round2(explicitAmount), nil
	}
	return 0, apperror.New(apperror.ErrCodeValidation, "invalid payment type")
}

// Net is the amount credited to the payee on release: subtotal minus the
// platform fee. The processor fee is borne by the payer on top.
func (f FeeBreakdown) Net() float64 {
	return Round2(f.Subtotal - f.PlatformFee)
}

type Budget struct {
	Min Money
	Max Money
}

func NewBudget(min, max float64) (Budget, error) {
	if min < 0 || max < 0 {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "budget cannot be negative")
	}
	if min > max {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "minimum budget cannot exceed maximum")
	}

	minMoney, _ := NewMoney(min, "CAD")
	maxMoney, _ := NewMoney(max, "CAD")

	return Budget{Min: minMoney, Max: maxMoney}, nil
}

func (b Budget) IsInRange(amount float64) bool {
	return amount >= b.Min.Amount && amount <= b.Max.Amount
}

func (b Budget) String() string {
	return fmt.Sprintf("%s %.2f - %.2f", b.Min.Currency, b.Min.Amount, b.Max.Amount)
}
