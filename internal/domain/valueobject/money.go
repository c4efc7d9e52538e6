package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

// Money - сумма в целых рупиях. Платёжный шлюз работает с INR без копеек.
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount <= 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return Money(amount), nil
}

func (m Money) String() string {
	return fmt.Sprintf("₹%d", int64(m))
}

// FeeRates - проценты платформы.
type FeeRates struct {
	// JobGiverFeePercent начисляется сверху на сумму заказчика.
	JobGiverFeePercent float64 `json:"jobGiverFeeRate"`
	// CommissionPercent удерживается из выплаты установщику.
	CommissionPercent float64 `json:"installerCommissionRate"`
}

// EscrowSplit - разбивка одной оплаты.
type EscrowSplit struct {
	Amount           Money
	JobGiverFee      Money
	Commission       Money
	TotalPaidByGiver Money
	Payout           Money
}

// Split считает комиссии с округлением вверх до рупии.
func (r FeeRates) Split(amount Money) EscrowSplit {
	fee := Money(math.Ceil(float64(amount) * r.JobGiverFeePercent / 100))
	commission := Money(math.Ceil(float64(amount) * r.CommissionPercent / 100))
	return EscrowSplit{
		Amount:           amount,
		JobGiverFee:      fee,
		Commission:       commission,
		TotalPaidByGiver: amount + fee,
		Payout:           amount - commission,
	}
}
