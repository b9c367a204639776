package models

// LineItem is one priced entry of a checkout request. UnitAmount is in the currency's minor unit.
type LineItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int64  `json:"quantity"`
}

type CheckoutRequest struct {
	Items             []LineItem `json:"items"`
	Currency          string     `json:"currency"`
	ClientReferenceID string     `json:"client_reference_id,omitempty"`
}

type CheckoutResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	if len(r.Items) == 0 {
		return Invalid("at least one line item is required")
	}
	for i, item := range r.Items {
		if item.Name == "" {
			return Invalid("item %d: name is required", i)
		}
		if item.Quantity < 1 {
			return Invalid("item %d: quantity must be at least 1", i)
		}
		if item.UnitAmount < 0 {
			return Invalid("item %d: unit amount must not be negative", i)
		}
	}
	return nil
}
