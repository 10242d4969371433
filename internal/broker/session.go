package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pquerna/otp/totp"

	"signal-trader/pkg/utils"
)

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login authenticates with Kite. It first tries the persisted session and
// otherwise returns the login URL for the operator to complete OAuth.
func (k *KiteGateway) Login(ctx context.Context) error {
	if err := k.loadSession(); err == nil && k.IsAuthenticated() {
		if _, err := k.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	loginURL := k.client.GetLoginURL()
	return fmt.Errorf("authentication required: visit %s, complete login, then run 'session complete' with the request token", loginURL)
}

// CompleteLogin completes the OAuth flow with the request token.
func (k *KiteGateway) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := k.client.GenerateSession(requestToken, k.apiSecret)
	if err != nil {
		return wrapError("login", err)
	}

	k.mu.Lock()
	k.accessToken = session.AccessToken
	k.authenticated = true
	k.client.SetAccessToken(session.AccessToken)
	k.mu.Unlock()

	return k.saveSession(session.AccessToken)
}

// RefreshSession renews the access token. Used by the resilient layer for
// its single refresh-then-retry on auth expiry.
func (k *KiteGateway) RefreshSession(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	session, err := k.client.RenewAccessToken(k.accessToken, k.apiSecret)
	if err != nil {
		k.authenticated = false
		return wrapError("refresh", err)
	}

	k.accessToken = session.AccessToken
	k.client.SetAccessToken(session.AccessToken)

	return k.saveSession(session.AccessToken)
}

// IsAuthenticated returns whether the gateway holds a live session.
func (k *KiteGateway) IsAuthenticated() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.authenticated
}

// TOTPCode generates the current 2FA code from the configured secret,
// for use during the login flow.
func (k *KiteGateway) TOTPCode() (string, error) {
	if k.totpSecret == "" {
		return "", fmt.Errorf("no TOTP secret configured")
	}
	code, err := totp.GenerateCode(k.totpSecret, time.Now())
	if err != nil {
		return "", fmt.Errorf("generating TOTP code: %w", err)
	}
	return code, nil
}

func (k *KiteGateway) sessionPath() string {
	if k.tokenPath != "" {
		return k.tokenPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "signal-trader", "session.json")
}

func (k *KiteGateway) loadSession() error {
	data, err := os.ReadFile(k.sessionPath())
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	// Kite tokens expire at 6 AM IST the next day.
	if time.Now().After(session.ExpiresAt) {
		return fmt.Errorf("session expired")
	}

	k.mu.Lock()
	k.accessToken = session.AccessToken
	k.authenticated = true
	k.client.SetAccessToken(session.AccessToken)
	k.mu.Unlock()

	return nil
}

func (k *KiteGateway) saveSession(accessToken string) error {
	path := k.sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	now := time.Now().In(utils.IndiaLocation)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, utils.IndiaLocation)

	session := sessionData{
		AccessToken: accessToken,
		UserID:      k.userID,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
