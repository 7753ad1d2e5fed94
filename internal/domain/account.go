package domain

// Account is the signed-in operator as returned by the login endpoint.
type Account struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// LoginData is the data of a successful login response.
type LoginData struct {
	AccessToken string  `json:"accessToken"`
	User        Account `json:"user"`
}
