package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.StandardClaims
}

// ClientPortalClaim authorizes a project's client (identified by email only,
// no account) to view and act on the pitch via a signed portal link.
type ClientPortalClaim struct {
	ProjectID   int    `json:"project_id"`
	ClientEmail string `json:"client_email"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "MixPitch-Secret"
	}
	return secret
}

func JwtGenerate(userID int, name string, role string) (string, error) {
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 24
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   userID,
		Name: name,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(tokenLifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtSecret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}

// GenerateClientPortalToken signs a portal link for a client-management project.
// Expiry defaults to 7 days (CLIENT_PORTAL_LINK_EXPIRY_DAYS overrides).
func GenerateClientPortalToken(projectID int, clientEmail string) (string, error) {
	expiryDays, err := strconv.Atoi(os.Getenv("CLIENT_PORTAL_LINK_EXPIRY_DAYS"))
	if err != nil || expiryDays <= 0 {
		expiryDays = 7
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClientPortalClaim{
		ProjectID:   projectID,
		ClientEmail: clientEmail,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().AddDate(0, 0, expiryDays).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtSecret)
}

func ValidateClientPortalToken(token string) (*ClientPortalClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &ClientPortalClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*ClientPortalClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid client portal token")
	}
	return claim, nil
}
