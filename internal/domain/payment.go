package domain

type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodUPI      PaymentMethod = "upi"
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodStripe   PaymentMethod = "stripe"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCard:     "Credit Card",
	PaymentMethodCOD:      "Cash on Delivery",
	PaymentMethodUPI:      "UPI Payment",
	PaymentMethodRazorpay: "Razorpay",
	PaymentMethodStripe:   "Stripe",
}

// DisplayName is the label shown to customers in receipts.
func (m PaymentMethod) DisplayName() string {
	if label, ok := paymentMethodLabels[m]; ok {
		return label
	}
	return string(m)
}

func (m PaymentMethod) Valid() bool {
	_, ok := paymentMethodLabels[m]
	return ok
}

type PaymentResult struct {
	Success   bool          `json:"success"`
	PaymentID string        `json:"payment_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Method    PaymentMethod `json:"method"`
	// ActionRequired marks an unpaid result the customer can finish with the
	// provider; PaymentID then holds the provider reference to finish it with.
	ActionRequired bool `json:"action_required,omitempty"`
}

func PaymentSucceeded(method PaymentMethod, paymentID string) PaymentResult {
	return PaymentResult{Success: true, PaymentID: paymentID, Method: method}
}

func PaymentActionRequired(method PaymentMethod, reference, message string) PaymentResult {
	return PaymentResult{Success: false, PaymentID: reference, Error: message, Method: method, ActionRequired: true}
}

func PaymentFailed(method PaymentMethod, message string) PaymentResult {
	return PaymentResult{Success: false, Error: message, Method: method}
}
