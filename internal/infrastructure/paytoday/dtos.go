package paytoday

type authorizeRequest struct {
	Version string `json:"v"`
	Handle  string `json:"handle"`
	Key     string `json:"key"`
}

type intentRequest struct {
	Version         string `json:"v"`
	Handle          string `json:"handle"`
	Amount          string `json:"amount"`
	InvoiceNumber   string `json:"invoice_number"`
	UserFirstName   string `json:"user_first_name"`
	UserLastName    string `json:"user_last_name"`
	UserEmail       string `json:"user_email"`
	UserPhoneNumber string `json:"user_phone_number"`
	ReturnURL       string `json:"return_url"`
}

// envelopeResponse is the outer body of every PayToday response.
type envelopeResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
