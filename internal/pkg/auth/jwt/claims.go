package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a workspace identity token.
// The token is issued privately to a connection after a successful join and lets the holder
// call the REST endpoints as that user.
type Payload struct {
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the resolved workspace user id.
	ID string `json:"id"`

	// Name is the display name the user joined with.
	Name string `json:"name"`
}
