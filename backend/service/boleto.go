package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/imobgestao/locacoes/backend/model"
)

var (
	// ErrInvalidReference is returned for a malformed or out-of-lease reference month
	ErrInvalidReference = errors.New("invalid boleto reference")
	// ErrDuplicateBoleto is returned when the month already has a boleto
	ErrDuplicateBoleto = errors.New("boleto already issued for reference")
	// ErrBoletoState is returned for a transition not allowed from the current status
	ErrBoletoState = errors.New("boleto status does not allow this operation")
)

const referenceLayout = "2006-01"

// DueDate returns the due date of a reference month ("YYYY-MM") for a
// payment day, clamped to the last day of the month
func DueDate(reference string, paymentDay int) (time.Time, error) {
	month, err := time.Parse(referenceLayout, reference)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReference, reference)
	}

	if paymentDay < 1 {
		paymentDay = 1
	}
	lastDay := month.AddDate(0, 1, -1).Day()
	if paymentDay > lastDay {
		paymentDay = lastDay
	}
	return time.Date(month.Year(), month.Month(), paymentDay, 0, 0, 0, 0, time.UTC), nil
}

// NewBoleto builds an open boleto for the contract's rent in the reference month.
// The reference month must overlap the lease.
func NewBoleto(contract model.Contract, reference string, now time.Time) (model.Boleto, error) {
	due, err := DueDate(reference, contract.PaymentDay)
	if err != nil {
		return model.Boleto{}, err
	}

	d, err := contract.Dates()
	if err != nil {
		return model.Boleto{}, err
	}
	monthStart := time.Date(due.Year(), due.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	if monthEnd.Before(d.Start) || monthStart.After(d.End) {
		return model.Boleto{}, fmt.Errorf("%w: %s is outside the lease", ErrInvalidReference, reference)
	}

	key := model.BoletoKey(contract.ID, reference)
	return model.Boleto{
		ID:         uuid.New().String(),
		Agency:     contract.Agency,
		ContractID: contract.ID,
		Reference:  reference,
		DueDate:    due.Format("2006-01-02"),
		Amount:     contract.RentAmount.Round(2),
		Status:     model.BoletoOpen,
		OpenKey:    &key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IssueBoleto creates and stores the boleto of a reference month, rejecting
// a second non-cancelled boleto for the same contract and month
func IssueBoleto(ctx context.Context, boletos Repository[model.Boleto], contract model.Contract, reference string, now time.Time) (model.Boleto, error) {
	boleto, err := NewBoleto(contract, reference, now)
	if err != nil {
		return model.Boleto{}, err
	}

	err = boletos.SaveIfAbsent(ctx, boleto, func(b model.Boleto) bool {
		return b.ContractID == contract.ID && b.Reference == reference && b.Status != model.BoletoCancelled
	})
	if errors.Is(err, ErrConflict) {
		return model.Boleto{}, fmt.Errorf("%w %s", ErrDuplicateBoleto, reference)
	}
	if err != nil {
		return model.Boleto{}, err
	}
	return boleto, nil
}

// MarkBoletoPaid settles an open boleto
func MarkBoletoPaid(ctx context.Context, boletos Repository[model.Boleto], id string, now time.Time) (model.Boleto, error) {
	return transitionBoleto(ctx, boletos, id, func(b *model.Boleto) error {
		if b.Status != model.BoletoOpen {
			return ErrBoletoState
		}
		b.Status = model.BoletoPaid
		paidAt := now
		b.PaidAt = &paidAt
		b.UpdatedAt = now
		return nil
	})
}

// CancelBoleto cancels an open boleto
func CancelBoleto(ctx context.Context, boletos Repository[model.Boleto], id string, now time.Time) (model.Boleto, error) {
	return transitionBoleto(ctx, boletos, id, func(b *model.Boleto) error {
		if b.Status != model.BoletoOpen {
			return ErrBoletoState
		}
		b.Status = model.BoletoCancelled
		b.OpenKey = nil
		b.UpdatedAt = now
		return nil
	})
}

func transitionBoleto(ctx context.Context, boletos Repository[model.Boleto], id string, apply func(*model.Boleto) error) (model.Boleto, error) {
	var result model.Boleto
	var applyErr error

	err := boletos.Update(ctx, id, func(b *model.Boleto) {
		before := *b
		if applyErr = apply(b); applyErr != nil {
			*b = before
		}
		result = *b
	})
	if err != nil {
		return model.Boleto{}, err
	}
	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}
