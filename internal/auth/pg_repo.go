package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	dbTimeout = time.Second * 3

	uniqueViolationCode = "23505"
)

// Email validation regex - standard email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'USER',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresRepository struct {
	Conn *pgxpool.Pool
}

func NewPostgresRepository(conn *pgxpool.Pool) AuthRepository {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	// best-effort schema bootstrap; a failure surfaces on first query
	_, _ = conn.Exec(ctx, usersSchema)

	return &PostgresRepository{Conn: conn}
}

// ValidateNewUser validates a new user before creation
func (p *PostgresRepository) ValidateNewUser(user *User) error {
	if user.Username == nil || strings.TrimSpace(*user.Username) == "" {
		return fmt.Errorf("username is required")
	}

	if user.Email == nil || strings.TrimSpace(*user.Email) == "" {
		return fmt.Errorf("email is required")
	}

	if !emailRegex.MatchString(*user.Email) {
		return fmt.Errorf("invalid email format")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var exists bool
	err := p.Conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, *user.Username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("database error during validation: %w", err)
	}
	if exists {
		return fmt.Errorf("username already exists")
	}

	err = p.Conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, *user.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("database error during validation: %w", err)
	}
	if exists {
		return fmt.Errorf("email already exists")
	}

	return nil
}

func (p *PostgresRepository) CreateUser(user *User) error {
	if user.Password == nil {
		return fmt.Errorf("password is required")
	}

	if err := p.ValidateNewUser(user); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(*user.Password), 12)
	if err != nil {
		return err
	}
	hash := string(passwordHash)
	user.PasswordHash = &hash

	role := newUserRole
	if user.Role != nil {
		role = *user.Role
	}

	id := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var createdAt time.Time
	err = p.Conn.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		id, *user.Username, *user.Email, hash, role).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("username or email already exists")
		}
		return err
	}

	createdAt = createdAt.UTC()
	user.ID = &id
	user.Role = &role
	user.CreatedAt = &createdAt

	return nil
}

func (p *PostgresRepository) AuthenticateUser(cred *UserLoginCredentials) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var passwordHash string
	err := p.Conn.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, cred.Username).Scan(&passwordHash)
	if err != nil {
		return false, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(cred.Password)); err != nil {
		return false, errors.New("invalid credentials")
	}

	return true, nil
}

func (p *PostgresRepository) GetUserInfo(username string) (*User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var (
		id        string
		email     string
		role      string
		createdAt time.Time
	)
	err := p.Conn.QueryRow(ctx,
		`SELECT id, email, role, created_at FROM users WHERE username = $1`, username).
		Scan(&id, &email, &role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}

	createdAt = createdAt.UTC()
	return &User{
		ID:        &id,
		Username:  &username,
		Email:     &email,
		Role:      &role,
		CreatedAt: &createdAt,
	}, nil
}
