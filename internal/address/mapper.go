package address

type Response struct {
	ID            string  `json:"id"`
	RecipientName string  `json:"recipientName"`
	Phone         *string `json:"phone,omitempty"`
	Line1         string  `json:"line1"`
	Line2         *string `json:"line2,omitempty"`
	City          string  `json:"city"`
	Region        string  `json:"region,omitempty"`
	PostalCode    string  `json:"postalCode"`
	Country       string  `json:"country"`
}

func ToResponse(a *ShippingAddress) *Response {
	if a == nil {
		return nil
	}
	return &Response{
		ID:            a.ID.String(),
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		Region:        a.Region,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}
