package handler

import (
	"bytes"
	"encoding/json"

	"github.com/rl1809/donation-checkout/internal/core/service"
	"github.com/rl1809/donation-checkout/internal/port"
)

// Services bundles the core entry points shared by the HTTP and gRPC transports.
type Services struct {
	Form       *service.DonationForm
	Mini       *service.MiniDonationForm
	Pane       *service.CheckoutPane
	Orders     *service.OrderService
	Currencies port.CurrencySwitcher
	StoreID    string
}

// rawAmount accepts a JSON number or string so that non-numeric input is
// reported by amount validation rather than as a malformed body.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = rawAmount(s)
		return nil
	}
	*a = rawAmount(bytes.TrimSpace(b))
	return nil
}
