package ndjson

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Next(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\":1}\n\n   \n  [1,2]  \r\n\"s\"\n"))

	v, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v))

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(v))
	assert.Equal(t, 4, r.Line())

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `"s"`, string(v))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ParseErrorDoesNotPoisonStream(t *testing.T) {
	r := NewReader(strings.NewReader("{\"ok\":true}\n{invalid json}\n{\"ok\":false}\n"))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "expected *ParseError, got %v", err)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "{invalid json}", pe.Partial)
	assert.Error(t, pe.Err)
	assert.Contains(t, pe.Error(), "line 2")
	assert.True(t, IsParseError(err))

	v, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false}`, string(v))
}

func TestReader_LastLineWithoutNewline(t *testing.T) {
	r := NewReader(strings.NewReader(`{"x":1}`))

	v, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(v))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_KeepEmptyLines(t *testing.T) {
	r := NewReader(strings.NewReader("\n{}\n"), WithKeepEmptyLines())

	_, err := r.Next()
	assert.ErrorIs(t, err, ErrEmptyLine)

	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(v))
}

func TestReader_MaxLineSize(t *testing.T) {
	long := `{"data":"` + strings.Repeat("x", 5000) + `"}`
	r := NewReader(strings.NewReader(long+"\n{}\n"), WithMaxLineSize(1024))

	_, err := r.Next()
	assert.ErrorIs(t, err, ErrLineTooLong)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
	assert.LessOrEqual(t, len(pe.Partial), partialLimit)

	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(v))
	assert.Equal(t, 2, r.Line())
}

func TestReader_Decode(t *testing.T) {
	r := NewReader(strings.NewReader("{\"name\":\"add\"}\n{\"name\":1}\n"))

	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, r.Decode(&v))
	assert.Equal(t, "add", v.Name)

	err := r.Decode(&v)
	assert.True(t, IsParseError(err))
}
