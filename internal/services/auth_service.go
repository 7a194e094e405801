package services

import (
	"fmt"
	"time"

	"contactbook/internal/models"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and checks passwords and issues tokens for accounts.
type Credentials interface {
	HashPassword(plain string) (string, error)
	ComparePassword(hashed, plain string) error
	IssueToken(account *models.Account) (string, error)
}

// AuthService handles password hashing and JWT issuance and validation.
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration // Duration for which JWT is valid
}

var _ Credentials = (*AuthService)(nil)

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// HashPassword returns the bcrypt hash of plain.
func (s *AuthService) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword returns nil when plain matches the stored hash.
func (s *AuthService) ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// IssueToken signs a token carrying the account id and name.
func (s *AuthService) IssueToken(account *models.Account) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  account.ID,
		"username": account.Name,
		"exp":      now.Add(s.tokenTTL).Unix(), // Token expiration time
		"iat":      now.Unix(),                 // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// UserIDFromClaims extracts the account id carried by a validated token.
func UserIDFromClaims(claims jwt.MapClaims) (uint64, error) {
	switch v := claims["user_id"].(type) {
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid user_id claim %v", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("missing user_id claim")
	}
}
