// Package telegram wraps the Telegram surfaces the backend depends on:
// Mini App initData verification and the Bot API used for channel messages.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

// DefaultMaxAge is how long signed initData stays valid.
const DefaultMaxAge = 24 * time.Hour

// WebAppUser is the user object embedded in initData.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// TelegramID returns the id in the string form used as the user key.
func (u WebAppUser) TelegramID() string { return strconv.FormatInt(u.ID, 10) }

// InitData is verified Mini App launch data.
type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	StartParam string
	QueryID    string
}

// Validator checks initData signatures for one bot.
type Validator struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewValidator creates a validator. maxAge <= 0 disables the freshness check.
func NewValidator(botToken string, maxAge time.Duration) *Validator {
	return &Validator{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// Configured reports whether a bot token is available.
func (v *Validator) Configured() bool { return v != nil && v.botToken != "" }

// Parse verifies raw initData and decodes it. Every failure matches
// domain.ErrInvalidInitData.
func (v *Validator) Parse(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, invalid("malformed query: %v", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, invalid("missing hash")
	}
	values.Del("hash")

	want := sign(dataCheckString(values), v.botToken)
	got, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(got, want) {
		return nil, invalid("hash mismatch")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, invalid("bad auth_date")
	}
	issued := time.Unix(authDate, 0)
	if v.maxAge > 0 && v.now().Sub(issued) > v.maxAge {
		return nil, invalid("auth_date too old")
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, invalid("missing user")
	}

	return &InitData{
		User:       user,
		AuthDate:   issued,
		StartParam: values.Get("start_param"),
		QueryID:    values.Get("query_id"),
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInitData}, args...)...)
}

// dataCheckString joins key=value pairs sorted by key with newlines.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			pairs = append(pairs, k+"="+v)
		}
	}
	return strings.Join(pairs, "\n")
}

// sign computes HMAC(HMAC("WebAppData", token), data).
func sign(data, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(data))
	return h.Sum(nil)
}

// SignInitData encodes values with a valid hash for botToken, the way
// Telegram clients receive it. Used by tooling and tests.
func SignInitData(values url.Values, botToken string) string {
	out := url.Values{}
	for k, v := range values {
		if k != "hash" {
			out[k] = v
		}
	}
	out.Set("hash", hex.EncodeToString(sign(dataCheckString(out), botToken)))
	return out.Encode()
}
