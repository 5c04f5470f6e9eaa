package models

import "github.com/golang-jwt/jwt/v5"

// Party roles carried in access tokens. Token issuance is handled by the
// upstream identity service; this service only validates and reads claims.
const (
	RoleConsumer = "consumer"
	RoleBusiness = "business"
	RoleCourier  = "courier"
)

type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
