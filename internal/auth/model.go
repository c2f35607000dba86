package auth

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	newUserRole = "USER"
	// JWT expiration time - 24 hours
	jwtExpirationHours = 24
)

var jwtSecretKey = os.Getenv("JWT_SECRET")

// Context keys for storing user information
type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
	roleKey     contextKey = "role"
)

type JWTClaims struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

// NewAuthRepository returns a Postgres-backed repository, or nil when no
// database connection is available (auth endpoints are then disabled).
func NewAuthRepository(conn *pgxpool.Pool) AuthRepository {
	if conn == nil {
		return nil
	}
	return NewPostgresRepository(conn)
}

type User struct {
	ID           *string    `json:"id,omitempty"`
	Username     *string    `json:"username,omitempty"`
	Password     *string    `json:"password,omitempty"`
	PasswordHash *string    `json:"password_hash,omitempty"`
	Email        *string    `json:"email,omitempty"`
	Role         *string    `json:"role,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type NewUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type UserLoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserLoginResponse struct {
	Token string `json:"token"`
}

type UserRegistrationResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func NewUserFromRequest(req *NewUserRequest) *User {
	role := newUserRole
	return &User{
		Username: &req.Username,
		Password: &req.Password,
		Email:    &req.Email,
		Role:     &role,
	}
}

// NewAdminUserFromRequest creates a new user with ADMIN role
func NewAdminUserFromRequest(req *NewUserRequest) *User {
	role := "ADMIN"
	return &User{
		Username: &req.Username,
		Password: &req.Password,
		Email:    &req.Email,
		Role:     &role,
	}
}

// GenerateJWT generates a JWT token for the given user
func GenerateJWT(user *User) (string, error) {
	if user.ID == nil || user.Username == nil {
		return "", jwt.ErrInvalidKey
	}

	expirationTime := time.Now().Add(jwtExpirationHours * time.Hour)

	claims := &JWTClaims{
		Username: *user.Username,
		UserID:   *user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "ultradian-service",
			Subject:   *user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecretKey))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateJWT validates and parses a JWT token
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrInvalidKey
	}

	return claims, nil
}

// GetUserFromContext extracts user information from request context
func GetUserFromContext(ctx context.Context) (userID, username, role string, ok bool) {
	userIDVal := ctx.Value(userIDKey)
	usernameVal := ctx.Value(usernameKey)
	roleVal := ctx.Value(roleKey)

	if userIDVal == nil || usernameVal == nil || roleVal == nil {
		return "", "", "", false
	}

	userID, ok1 := userIDVal.(string)
	username, ok2 := usernameVal.(string)
	role, ok3 := roleVal.(string)

	if !ok1 || !ok2 || !ok3 {
		return "", "", "", false
	}

	return userID, username, role, true
}

// authenticateRequest validates the bearer token and loads the user's
// current role from the database. Returns a non-nil error message and
// status code on failure.
func authenticateRequest(repo AuthRepository, r *http.Request) (*JWTClaims, string, string, int) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "", "Authorization header required", http.StatusUnauthorized
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, "", "Invalid authorization header format", http.StatusUnauthorized
	}

	claims, err := ValidateJWT(tokenParts[1])
	if err != nil {
		return nil, "", "Invalid or expired token", http.StatusUnauthorized
	}

	// Load the role from the database so revocations take effect
	// without waiting for token expiry.
	user, err := repo.GetUserInfo(claims.Username)
	if err != nil {
		return nil, "", "Failed to get user information", http.StatusInternalServerError
	}
	if user.Role == nil {
		return nil, "", "Insufficient permissions", http.StatusForbidden
	}

	return claims, *user.Role, "", 0
}

// RequireUserRole creates middleware that requires a specific user role
func RequireUserRole(repo AuthRepository, requiredRole string) func(http.Handler) http.Handler {
	return requireRoles(repo, requiredRole)
}

// RequireAdminRole creates middleware that requires ADMIN role
func RequireAdminRole(repo AuthRepository) func(http.Handler) http.Handler {
	return requireRoles(repo, "ADMIN")
}

// RequireAnyUserRole creates middleware that allows USER or ADMIN roles
func RequireAnyUserRole(repo AuthRepository) func(http.Handler) http.Handler {
	return requireRoles(repo, "USER", "ADMIN")
}

func requireRoles(repo AuthRepository, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, role, msg, code := authenticateRequest(repo, r)
			if claims == nil {
				http.Error(w, msg, code)
				return
			}

			permitted := false
			for _, a := range allowed {
				if role == a {
					permitted = true
					break
				}
			}
			if !permitted {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			ctx = context.WithValue(ctx, roleKey, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
