package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/lisa-bot/internal/session"
)

func TestParseRatingCallback(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantID  int64
		wantRat int
		wantErr bool
	}{
		{name: "valid", data: "rate:42:5", wantID: 42, wantRat: 5},
		{name: "lower bound", data: "rate:1:1", wantID: 1, wantRat: 1},
		{name: "above range", data: "rate:42:6", wantErr: true},
		{name: "below range", data: "rate:42:0", wantErr: true},
		{name: "negative", data: "rate:42:-1", wantErr: true},
		{name: "not a number", data: "rate:42:five", wantErr: true},
		{name: "bad id", data: "rate:x:3", wantErr: true},
		{name: "zero id", data: "rate:0:3", wantErr: true},
		{name: "missing rating", data: "rate:42", wantErr: true},
		{name: "other callback", data: "menu:1", wantErr: true},
		{name: "empty", data: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, rating, err := parseRatingCallback(tt.data, 1, 5)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantRat, rating)
		})
	}
}

func TestRatingKeyboard(t *testing.T) {
	kb := ratingKeyboard(7, 1, 5)
	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 5)

	assert.Equal(t, "1", row[0].Text)
	require.NotNil(t, row[4].CallbackData)
	assert.Equal(t, "rate:7:5", *row[4].CallbackData)

	for _, btn := range row {
		id, _, err := parseRatingCallback(*btn.CallbackData, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("é", 5000)
	got := truncate(long, maxMessageRunes)
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, utf8.ValidString(got))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `hello\_world\!`, escapeMarkdown("hello_world!"))
	assert.Equal(t, `a\\b`, escapeMarkdown(`a\b`))
	assert.Equal(t, `\#tag \(x\)`, escapeMarkdown("#tag (x)"))
}

func TestFormatHistory(t *testing.T) {
	got := formatHistory([]session.Entry{
		{MessageID: 3, User: "write a loop\nplease", Reply: "Generated code:\n```\nfor {}\n```"},
	})
	assert.Contains(t, got, "*\\#3* _write a loop_")
	assert.Contains(t, got, "Generated code:")
	assert.NotContains(t, got, "please")
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "-100123", sessionKey(-100123))
}
