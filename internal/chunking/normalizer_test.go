package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRemovesDisallowedCharacters(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "the price is 100% worth it", n.Normalize("the price is 100% worth it ❤️"))
	assert.Equal(t, "profit & loss at $50/month", n.Normalize("profit & loss at $50/month"))
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "one two", n.Normalize("one \t  two"))
	assert.Equal(t, "para one\n\npara two", n.Normalize("para one\n\n\n\n\npara two"))
	assert.Equal(t, "line one\nline two", n.Normalize("  line one  \n  line two  "))
}

func TestNormalizeCollapsesStutter(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "this is important", n.Normalize("this is is is important"))
	assert.Equal(t, "raise raise your prices", n.Normalize("raise raise your prices"),
		"double repetition is kept, it is often deliberate emphasis")
	assert.Equal(t, "I I mean it", n.Normalize("I I mean it"))
	assert.Equal(t, "so", n.Normalize("so so so so so so"))
}

func TestNormalizeStripsBoilerplate(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "intro",
			in:   "Welcome back to the channel everyone. Pricing is about perceived value.",
			want: "Pricing is about perceived value.",
		},
		{
			name: "in this video",
			in:   "In this video we cover cold outreach. Start with a tight niche.",
			want: "Start with a tight niche.",
		},
		{
			name: "outro",
			in:   "Raise your rates every quarter. Thanks for watching!",
			want: "Raise your rates every quarter.",
		},
		{
			name: "subscribe outro",
			in:   "Track your churn weekly. Don't forget to like and subscribe!",
			want: "Track your churn weekly.",
		},
		{
			name: "stacked intros",
			in:   "Welcome back. Welcome back everybody. Retention beats acquisition.",
			want: "Retention beats acquisition.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{
		"Welcome back to the channel. Your offer needs a guarantee. Thanks for watching!",
		"this is is is   a messy\n\n\n\ntranscript ❤️ with noise",
		"plain text that needs no cleaning at all",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input: %q", in)
	}
}

func TestNormalizeEmptyAndNoise(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("   \n\n\t  "))
	assert.Equal(t, "", n.Normalize("♫♫♫"))
}
