package domain

// Identity is what a successful login hands back to the shell. Phone is the
// account's mobile number.
type Identity struct {
	UserID   string
	Username string
	Role     Role
	Hospital string
	Phone    string
	Address  string
}

// IdentityOf builds the login payload for u acting as r.
func IdentityOf(u User, r Role) Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     r,
		Hospital: u.Hospital,
		Phone:    u.Mobile,
		Address:  u.Address,
	}
}
