package domain

// TokenProvenance records how a payment token was obtained.
type TokenProvenance string

const (
	// ExplicitToken came from a named field in the provider response.
	ExplicitToken TokenProvenance = "explicit"
	// DerivedFromURL was cut from the trailing segment of the payment URL
	// and has not been confirmed by the provider.
	DerivedFromURL TokenProvenance = "derived_from_url"
)

type PaymentToken struct {
	Value      string
	Provenance TokenProvenance
}

func (t PaymentToken) IsZero() bool {
	return t.Value == ""
}

func (t PaymentToken) IsDerived() bool {
	return t.Provenance == DerivedFromURL
}

// Redact keeps only the tail of a secret for log output.
func Redact(secret string) string {
	const keep = 6
	if len(secret) <= keep {
		return "***"
	}
	return "***" + secret[len(secret)-keep:]
}
