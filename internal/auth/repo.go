package auth

// AuthRepository is the user store behind registration, login and the
// JWT role middleware. A nil repository disables the auth surface
// entirely (single-user deployments without Postgres).
type AuthRepository interface {
	CreateUser(user *User) error
	AuthenticateUser(credentials *UserLoginCredentials) (bool, error)
	GetUserInfo(username string) (*User, error)
}
