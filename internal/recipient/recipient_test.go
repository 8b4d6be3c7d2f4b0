package recipient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailform/internal/notice"
)

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"a@x.com", true},
		{"first.last+tag@sub.example.co", true},
		{"a@b.c", true},
		{"not-an-email", false},
		{"a@x", false},
		{"a b@x.com", false},
		{"a@@x.com", false},
		{"@x.com", false},
		{"a@x.com ", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.in), "Valid(%q)", tt.in)
	}
}

func TestAdd_AppendsAtEnd(t *testing.T) {
	t.Parallel()

	l := NewList([]string{"a@x.com"})
	n, err := l.Add("b@y.com")
	require.NoError(t, err)

	assert.Equal(t, notice.LevelSuccess, n.Level)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, l.Entries())
}

func TestAdd_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	l := NewList(nil)
	_, err := l.Add("  c@z.com\t")
	require.NoError(t, err)
	assert.Equal(t, []string{"c@z.com"}, l.Entries())
}

func TestAdd_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmpty},
		{"whitespace", "   ", ErrEmpty},
		{"malformed", "not-an-email", ErrInvalid},
		{"missing tld", "a@x", ErrInvalid},
		{"duplicate", "a@x.com", ErrDuplicate},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := NewList([]string{"a@x.com"})
			n, err := l.Add(tt.input)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, notice.LevelError, n.Level)
			assert.Equal(t, tt.want.Error(), n.Message)
			assert.Equal(t, []string{"a@x.com"}, l.Entries())
		})
	}
}

func TestAdd_DuplicateIsCaseSensitive(t *testing.T) {
	t.Parallel()

	l := NewList([]string{"a@x.com"})
	_, err := l.Add("A@X.COM")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	l := NewList([]string{"a@x.com", "b@y.com", "c@z.com"})
	n := l.Remove("b@y.com")

	assert.Equal(t, notice.LevelSuccess, n.Level)
	assert.Equal(t, []string{"a@x.com", "c@z.com"}, l.Entries())
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	t.Parallel()

	l := NewList([]string{"a@x.com"})
	l.Remove("zzz@y.com")
	assert.Equal(t, []string{"a@x.com"}, l.Entries())
}

func TestClear(t *testing.T) {
	t.Parallel()

	for _, entries := range [][]string{nil, {"a@x.com"}, {"a@x.com", "b@y.com", "c@z.com"}} {
		l := NewList(entries)
		n := l.Clear()

		assert.Equal(t, 0, l.Len())
		assert.Contains(t, n.Message, "cleared")
	}
}

func TestNewList_CopiesInput(t *testing.T) {
	t.Parallel()

	src := []string{"a@x.com"}
	l := NewList(src)
	src[0] = "changed@x.com"

	assert.Equal(t, []string{"a@x.com"}, l.Entries())

	out := l.Entries()
	out[0] = "changed@x.com"
	assert.True(t, l.Contains("a@x.com"))
}
