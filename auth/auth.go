// Package auth mints short lived GitHub App installation tokens.
package auth

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// AppTokenRequest scopes the requested installation token to given
// repositories and permissions.
type AppTokenRequest struct {
	Repositories []string          `json:"repositories"`
	Permissions  map[string]string `json:"permissions"`
}

// AppToken is a GitHub App installation access token.
type AppToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AppInstallationToken requests a new installation access token for the
// given GitHub App installation, authenticated with an RS256 JWT signed
// by the app's private key.
func AppInstallationToken(ctx context.Context,
	appID, installationID, privateKeyPath string, req AppTokenRequest,
) (*AppToken, error) {
	jwtToken, err := signAppJWT(appID, privateKeyPath)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://api.github.com/app/installations/%s/access_tokens", installationID)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Authorization", "Bearer "+jwtToken)
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		errMessage, err := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub app token response status %d, body:%q  err:%w", resp.StatusCode, errMessage, err)
	}

	var token AppToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

func signAppJWT(appID, privateKeyPath string) (string, error) {
	privatePEMData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return "", err
	}

	block, _ := pem.Decode(privatePEMData)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return "", fmt.Errorf("failed to decode PEM block containing private key")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privateKey}, nil)
	if err != nil {
		return "", err
	}

	cl := jwt.Claims{
		// GitHub App's ID or client ID
		Issuer: appID,
		// issued at time, 60 seconds in the past to allow for clock drift
		IssuedAt: jwt.NewNumericDate(time.Now().Add(-60 * time.Second)),
		// JWT expiration time (10 minute maximum)
		Expiry: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	}

	return jwt.Signed(signer).Claims(cl).Serialize()
}
