package presentation

import "fmt"

// paymentLabels are the TLC payment_type codes.
var paymentLabels = map[int64]string{
	0: "Flex Fare",
	1: "Credit card",
	2: "Cash",
	3: "No charge",
	4: "Dispute",
	5: "Unknown",
	6: "Voided trip",
}

// PaymentLabel names a payment_type code.
func PaymentLabel(code int64) string {
	if label, ok := paymentLabels[code]; ok {
		return label
	}
	return fmt.Sprintf("Code %d", code)
}
