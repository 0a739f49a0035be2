package domain

// Location is a delivery area with a flat shipping fee.
type Location struct {
	ID          string
	Name        string
	County      string
	Town        string
	ShippingFee int64
}

// Address is an entry in a user's address book.
type Address struct {
	ID                string
	UserID            string
	FirstName         string
	LastName          string
	MobilePhoneNumber string
	SpecificAddress   string
	IsDefault         bool
	LocationID        string
}
