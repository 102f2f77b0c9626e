package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

type DonationFormInput struct {
	Frequency string
	Amount    string
	Memorial  domain.Memorial
}

// MonthlyPledge is handed to the recurring donation flow instead of the cart.
type MonthlyPledge struct {
	Amount       decimal.Decimal
	CurrencyCode string
	Memorial     domain.Memorial
}

// FormOutcome says where the donor goes next: checkout for the cart in
// OrderID, or the monthly flow when Monthly is set.
type FormOutcome struct {
	OrderID string
	Monthly *MonthlyPledge
}

type AmountOption struct {
	Amount decimal.Decimal
	Label  string
}

// DonationForm is the full donation form with frequency and memorial details.
type DonationForm struct {
	carts      *CartService
	reconciler *DonationReconciler
	resolver   port.CurrencyResolver
	formatter  port.PriceFormatter
	logger     *zap.Logger
}

func NewDonationForm(
	carts *CartService,
	reconciler *DonationReconciler,
	resolver port.CurrencyResolver,
	formatter port.PriceFormatter,
	logger *zap.Logger,
) *DonationForm {
	return &DonationForm{
		carts:      carts,
		reconciler: reconciler,
		resolver:   resolver,
		formatter:  formatter,
		logger:     logger,
	}
}

func (f *DonationForm) Submit(ctx context.Context, sess domain.Session, in DonationFormInput) (*FormOutcome, error) {
	freq, err := domain.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, domain.NewValidationError("frequency", "Choose a single or monthly donation.")
	}

	code, err := f.resolver.ResolvedCurrencyCode(ctx, currencyContext(sess))
	if err != nil {
		return nil, fmt.Errorf("resolve currency: %w", err)
	}

	decision := domain.Decision{
		WantsDonation: true,
		Amount:        in.Amount,
		CurrencyCode:  code,
		Memorial:      in.Memorial,
	}
	amount, err := decision.Validate()
	if err != nil {
		return nil, err
	}

	if freq == domain.FrequencyMonthly {
		f.logger.Info("monthly donation handed off",
			zap.String("session_id", sess.ID),
			zap.String("amount", amount.String()),
			zap.String("currency", code),
		)
		return &FormOutcome{Monthly: &MonthlyPledge{
			Amount:       amount,
			CurrencyCode: code,
			Memorial:     in.Memorial.Normalize(),
		}}, nil
	}

	cart, err := f.carts.GetOrCreateCart(ctx, domain.DefaultOrderType, sess)
	if err != nil {
		return nil, err
	}
	if _, err := f.reconciler.Reconcile(ctx, cart, decision); err != nil {
		return nil, err
	}

	return &FormOutcome{OrderID: cart.ID}, nil
}

// Options lists the suggested amounts for freq labelled in the session's currency.
func (f *DonationForm) Options(ctx context.Context, sess domain.Session, freq domain.Frequency) ([]AmountOption, string, error) {
	code, err := f.resolver.ResolvedCurrencyCode(ctx, currencyContext(sess))
	if err != nil {
		return nil, "", fmt.Errorf("resolve currency: %w", err)
	}
	symbol, err := f.formatter.Symbol(code)
	if err != nil {
		return nil, "", fmt.Errorf("currency symbol: %w", err)
	}

	amounts := domain.SuggestedAmounts(freq)
	options := make([]AmountOption, 0, len(amounts))
	for _, a := range amounts {
		options = append(options, AmountOption{Amount: a, Label: symbol + a.String()})
	}
	return options, code, nil
}

// MiniDonationForm takes an amount and frequency only.
type MiniDonationForm struct {
	form *DonationForm
}

func NewMiniDonationForm(form *DonationForm) *MiniDonationForm {
	return &MiniDonationForm{form: form}
}

func (m *MiniDonationForm) Submit(ctx context.Context, sess domain.Session, frequency, amount string) (*FormOutcome, error) {
	return m.form.Submit(ctx, sess, DonationFormInput{
		Frequency: frequency,
		Amount:    amount,
	})
}

func currencyContext(sess domain.Session) port.CurrencyContext {
	return port.CurrencyContext{SessionID: sess.ID, StoreID: sess.StoreID}
}
