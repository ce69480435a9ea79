package utils

import (
	"strings"
	"testing"
)

func TestClientPortalTokenRoundTrip(t *testing.T) {
	token, err := GenerateClientPortalToken(42, "client@example.com")
	if err != nil {
		t.Fatalf("GenerateClientPortalToken: %v", err)
	}

	claim, err := ValidateClientPortalToken(token)
	if err != nil {
		t.Fatalf("ValidateClientPortalToken: %v", err)
	}
	if claim.ProjectID != 42 {
		t.Fatalf("project id = %d; want 42", claim.ProjectID)
	}
	if claim.ClientEmail != "client@example.com" {
		t.Fatalf("client email = %q", claim.ClientEmail)
	}
	if claim.ExpiresAt <= claim.IssuedAt {
		t.Fatalf("token must expire after issuance: iat=%d exp=%d", claim.IssuedAt, claim.ExpiresAt)
	}
}

func TestClientPortalTokenRejectsTampering(t *testing.T) {
	token, err := GenerateClientPortalToken(42, "client@example.com")
	if err != nil {
		t.Fatalf("GenerateClientPortalToken: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ValidateClientPortalToken(tampered); err == nil {
		t.Fatalf("tampered token validated")
	}
}

func TestJwtCarriesUserNameClaim(t *testing.T) {
	token, err := JwtGenerate(7, "Producer Pat", "admin")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	parsed, err := JwtValidate(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("JwtValidate: %v", err)
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatalf("claims type = %T", parsed.Claims)
	}
	if claim.ID != 7 || claim.Name != "Producer Pat" || claim.Role != "admin" {
		t.Fatalf("claim = %+v", claim)
	}
}
