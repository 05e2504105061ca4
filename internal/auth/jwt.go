package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	loadOnce      sync.Once
	jwtSecret     []byte
	refreshSecret []byte

	accessTokenMinutes  = 15
	refreshTokenDays    = 7
	rememberRefreshDays = 30

	CookieSecure = true
)

// loadConfig reads the signing secrets and TTL overrides from the
// environment on first use. An unset JWT_SECRET falls back to an ephemeral
// random secret, which keeps local runs working but invalidates every token
// on restart.
func loadConfig() {
	loadOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				panic("failed to generate fallback JWT secret: " + err.Error())
			}
			secret = hex.EncodeToString(buf)
			slog.Warn("JWT_SECRET not set, using an ephemeral secret. Sessions will not survive a restart.")
		} else if len(secret) < 32 {
			slog.Warn("JWT_SECRET is shorter than 32 characters, consider a longer secret")
		}
		jwtSecret = []byte(secret)

		if os.Getenv("COOKIE_SECURE") == "false" {
			CookieSecure = false
		}

		// Refresh tokens sign with a separate secret.
		refreshSecretEnv := os.Getenv("JWT_REFRESH_SECRET")
		if refreshSecretEnv == "" {
			refreshSecretEnv = secret + "-refresh"
		}
		refreshSecret = []byte(refreshSecretEnv)

		if v := os.Getenv("ACCESS_TOKEN_MINUTES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				accessTokenMinutes = n
			}
		}
		if v := os.Getenv("REFRESH_TOKEN_DAYS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				refreshTokenDays = n
			}
		}
		if v := os.Getenv("REMEMBER_REFRESH_DAYS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rememberRefreshDays = n
			}
		}
	})
}

type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// GenerateToken creates a short-lived access token.
func GenerateToken(userID int, username string) (string, error) {
	loadConfig()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(accessTokenMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// GenerateRefreshToken creates a refresh token that expires after the given
// number of days.
func GenerateRefreshToken(userID int, username string, days int) (string, error) {
	loadConfig()
	if days <= 0 {
		days = refreshTokenDays
	}
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(days) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(refreshSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	loadConfig()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != "access" {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ValidateRefreshToken validates a refresh token.
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	loadConfig()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return refreshSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != "refresh" {
			return nil, errors.New("invalid refresh token type")
		}
		return claims, nil
	}

	return nil, errors.New("invalid refresh token")
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// RefreshDays returns the configured refresh token TTL in days depending on
// the remember flag.
func RefreshDays(remember bool) int {
	loadConfig()
	if remember {
		return rememberRefreshDays
	}
	return refreshTokenDays
}

// SecureCookies reports whether auth cookies should carry the Secure flag.
func SecureCookies() bool {
	loadConfig()
	return CookieSecure
}
