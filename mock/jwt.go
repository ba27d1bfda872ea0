package mock

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const securityTokenTTL = 365 * 24 * time.Hour

// createSecurityToken creates a signed token identifying device.
func (s *IdentityService) createSecurityToken(device string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.Issuer,
		"sub": device,
		"exp": now.Add(securityTokenTTL).Unix(),
		"iat": now.Unix(),
		"typ": "security_token",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// device returns the device a security token was issued to.
func (s *IdentityService) device(securityToken string) (string, error) {
	parsed, err := jwt.Parse(securityToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer))
	if err != nil {
		return "", err
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", fmt.Errorf("security token has no subject")
	}
	return subject, nil
}
