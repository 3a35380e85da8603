package user

// User is the persisted user record. ID is the document id in the external
// store; IdentityID is the id of the identity account behind the session.
type User struct {
	ID                string `json:"id"`
	IdentityID        string `json:"userId"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Address1          string `json:"address1"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postalCode"`
	DateOfBirth       string `json:"dateOfBirth"`
	DwollaCustomerID  string `json:"dwollaCustomerId"`
	DwollaCustomerURL string `json:"dwollaCustomerUrl"`
}

// FullName returns the display name used for the identity account and the
// aggregator's client name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type SignUpParams struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type SignInParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
