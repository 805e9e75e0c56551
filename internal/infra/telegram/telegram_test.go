package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/domain"
)

const testToken = "123456:TEST-token"

func launchValues(authDate time.Time) url.Values {
	v := url.Values{}
	v.Set("query_id", "AAH")
	v.Set("user", `{"id":987654321,"first_name":"Ana","last_name":"B","username":"ana_b"}`)
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("start_param", "ref_TAKAX654321")
	return v
}

// ─── initData Tests ─────────────────────────────────────────────────────────

func TestParse_Valid(t *testing.T) {
	raw := SignInitData(launchValues(time.Now()), testToken)

	data, err := NewValidator(testToken, DefaultMaxAge).Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), data.User.ID)
	assert.Equal(t, "987654321", data.User.TelegramID())
	assert.Equal(t, "ana_b", data.User.Username)
	assert.Equal(t, "ref_TAKAX654321", data.StartParam)
	assert.Equal(t, "AAH", data.QueryID)
}

func TestParse_WrongToken(t *testing.T) {
	raw := SignInitData(launchValues(time.Now()), "other:token")
	_, err := NewValidator(testToken, DefaultMaxAge).Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)
}

func TestParse_TamperedField(t *testing.T) {
	raw := SignInitData(launchValues(time.Now()), testToken)
	raw = strings.Replace(raw, "ana_b", "mallory", 1)
	_, err := NewValidator(testToken, DefaultMaxAge).Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)
}

func TestParse_MissingHash(t *testing.T) {
	_, err := NewValidator(testToken, DefaultMaxAge).Parse(launchValues(time.Now()).Encode())
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)
}

func TestParse_Expired(t *testing.T) {
	raw := SignInitData(launchValues(time.Now().Add(-48*time.Hour)), testToken)

	_, err := NewValidator(testToken, DefaultMaxAge).Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)

	// Freshness disabled
	_, err = NewValidator(testToken, 0).Parse(raw)
	assert.NoError(t, err)
}

func TestParse_NoUser(t *testing.T) {
	v := launchValues(time.Now())
	v.Del("user")
	_, err := NewValidator(testToken, DefaultMaxAge).Parse(SignInitData(v, testToken))
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)
}

func TestValidator_Configured(t *testing.T) {
	assert.True(t, NewValidator(testToken, 0).Configured())
	assert.False(t, NewValidator("", 0).Configured())
	var nilV *Validator
	assert.False(t, nilV.Configured())
}

// ─── Bot Tests ──────────────────────────────────────────────────────────────

type fakeBotAPI struct {
	mu   sync.Mutex
	sent []url.Values
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"TakaX","username":"takax_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, r.PostForm)
		f.mu.Unlock()
		io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"channel"}}}`)
	default:
		io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestBot_SendMessage(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	bot, err := NewBot(BotConfig{Token: testToken, Endpoint: srv.URL + "/bot%s/%s"}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "takax_bot", bot.Username())

	require.NoError(t, bot.SendMessage(context.Background(), -100, "🎉 New team created!"))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.sent, 1)
	assert.Equal(t, "-100", api.sent[0].Get("chat_id"))
	assert.Equal(t, "🎉 New team created!", api.sent[0].Get("text"))
}

func TestBot_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(&fakeBotAPI{})
	defer srv.Close()

	bot, err := NewBot(BotConfig{Token: testToken, Endpoint: srv.URL + "/bot%s/%s"}, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = bot.SendMessage(ctx, 1, "hi")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewBot_NoToken(t *testing.T) {
	_, err := NewBot(BotConfig{}, quietLog())
	assert.Error(t, err)
}
