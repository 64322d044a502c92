package security

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP parameters shared by provisioning and verification.
const (
	// TOTPPeriod is the time step in seconds.
	TOTPPeriod = 30
	// TOTPSkew is the number of steps accepted on either side of the current one.
	TOTPSkew = 1
)

// totpValidateOpts matches what authenticator apps generate by default.
var totpValidateOpts = totp.ValidateOpts{
	Period:    TOTPPeriod,
	Skew:      TOTPSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ValidateTOTP checks code against secret at the given time with a ±1 step window.
func ValidateTOTP(code, secret string, at time.Time) bool {
	code = strings.TrimSpace(code)
	secret = strings.TrimSpace(secret)
	if code == "" || secret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, at.UTC(), totpValidateOpts)
	if err != nil {
		return false
	}
	return valid
}

// TOTPKey is a freshly generated TOTP secret with its provisioning URL.
type TOTPKey struct {
	Secret string
	URL    string
}

// GenerateTOTPKey creates a new base32 secret for accountName.
func GenerateTOTPKey(issuer, accountName string) (TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      TOTPPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPKey{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// TOTPURL builds the otpauth provisioning URL for an existing secret.
func TOTPURL(issuer, accountName, secret string) string {
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("period", strconv.Itoa(TOTPPeriod))
	params.Set("digits", otp.DigitsSix.String())
	params.Set("algorithm", otp.AlgorithmSHA1.String())
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountName,
		RawQuery: params.Encode(),
	}
	return u.String()
}
