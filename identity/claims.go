// Package identity extracts advisory identity fields from bearer tokens
// and profile responses. Nothing here verifies a signature: the issuing
// server is the trust boundary, and the extracted fields are only used
// for display and lookup, never for authorization decisions.
package identity

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeClaims decodes the claims segment of a JWT-shaped bearer token
// without verifying it. It returns (nil, false) for anything that is
// not a three-segment token with a base64 JSON payload; malformed
// tokens are logged, never treated as errors.
func DecodeClaims(token string) (jwt.MapClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		slog.Debug("claims decode: token does not have three segments", "segments", len(parts))
		return nil, false
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		slog.Debug("claims decode: base64 decode failed", "error", err)
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		slog.Debug("claims decode: claims are not valid JSON", "error", err)
		return nil, false
	}
	return claims, true
}

// EmailFromClaims returns the email claim, or "" when absent or not
// email-shaped.
func EmailFromClaims(claims jwt.MapClaims) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims["email"].(string); ok && strings.Contains(v, "@") {
		return v
	}
	return ""
}
