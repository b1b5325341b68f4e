package domain

// User mirrors the persisted representation in the users table.
type User struct {
	ID        int64
	Profile   string
	FirstName string
	LastName  string
	Gender    string
	Age       int
}

// Credential mirrors the persisted representation in the authentication table.
// Each credential row belongs to exactly one user via UserID.
type Credential struct {
	UserID       int64
	Username     string
	Email        string
	Mobile       string
	PasswordHash string
	Token        *string
	FirstLogin   bool
	LoggedIn     bool
}

// Account is the joined view of a user and its credential row, as returned
// by the login lookup.
type Account struct {
	User       User
	Credential Credential
}
