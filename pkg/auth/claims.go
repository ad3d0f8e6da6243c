package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/telavo/activation-backend/pkg/enums"
)

// AccessTokenClaims is the subscriber identity carried on every API request.
// Tokens are issued by the external identity provider; this service only
// verifies and reads them.
type AccessTokenClaims struct {
	UserID      string            `json:"uid"`
	AccountType enums.AccountType `json:"account_type,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenPayload captures the inputs for minting a token (dev tooling and tests).
type AccessTokenPayload struct {
	UserID      string
	AccountType enums.AccountType
	JTI         string
}
