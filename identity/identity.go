// Package identity decodes a bearer token's payload into a user identity.
//
// Decoding is deliberately unverified: the backend revalidates every
// authenticated call, so the decoded identity is a display/navigation
// convenience, not a security control. Do not gate anything server-side on
// it.
package identity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	campushub "github.com/campushub/campushub-go"
	"github.com/golang-jwt/jwt/v5"
)

// Decode parses the token payload (without signature verification) and maps
// its claims onto an Identity. The token must carry a user id under "user_id"
// or "sub"; everything else is optional.
func Decode(token string) (*campushub.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("campushub/identity: parse token: %w", err)
	}
	return FromClaims(claims)
}

// FromClaims maps raw token claims onto an Identity.
func FromClaims(claims jwt.MapClaims) (*campushub.Identity, error) {
	id := &campushub.Identity{
		ID:         claimString(claims, "user_id", "sub"),
		FirstName:  claimString(claims, "first_name"),
		LastName:   claimString(claims, "last_name"),
		Email:      claimString(claims, "email"),
		SchoolID:   claimString(claims, "school_id"),
		SchoolName: claimString(claims, "school_name"),
		Role:       campushub.NormalizeRole(claimString(claims, "role")),
	}
	if id.ID == "" {
		return nil, fmt.Errorf("campushub/identity: token payload has no user id")
	}

	// Some backends issue a single "name" claim instead of split fields.
	if id.FirstName == "" && id.LastName == "" {
		if name := claimString(claims, "name"); name != "" {
			parts := strings.SplitN(name, " ", 2)
			id.FirstName = parts[0]
			if len(parts) == 2 {
				id.LastName = parts[1]
			}
		}
	}

	return id, nil
}

// claimString returns the first present claim among keys, stringified.
// Numeric ids (DRF serializes them as numbers) become their decimal form.
func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		v, ok := claims[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			if t == math.Trunc(t) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(t, 10)
		}
	}
	return ""
}
