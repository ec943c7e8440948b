package protocol

import (
	"bufio"
	"strings"
	"testing"

	"redcore/internal/reply"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandArrayForm(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "GET", string(args[0]))
	assert.Equal(t, "k", string(args[1]))
}

func TestParseCommandInlineForm(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("PING hello\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "PING", string(args[0]))
	assert.Equal(t, "hello", string(args[1]))
}

func TestParseCommandEmptyInlineErrors(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\r\n"))
	_, err := ParseCommand(r)
	assert.Error(t, err)
}

func TestParseCommandArrayRejectsInvalidLength(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*-1\r\n"))
	_, err := ParseCommand(r)
	assert.Error(t, err)
}

func TestParseCommandArrayRejectsNonDollarElement(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*1\r\n:5\r\n"))
	_, err := ParseCommand(r)
	assert.Error(t, err)
}

func TestParseCommandArrayHandlesEmptyBulkString(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*1\r\n$-1\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Empty(t, args[0])
}

func TestHasCompleteCommandFalseOnEmptyBuffer(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	assert.False(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandDetectsFullArray(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	// prime the bufio.Reader's internal buffer without consuming bytes.
	r.Peek(1)
	assert.True(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandFalseOnPartialArray(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$1\r\n"))
	r.Peek(1)
	assert.False(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandDetectsPipelinedCommands(t *testing.T) {
	// Two full commands queued back to back; completeness only requires
	// the first one be fully buffered.
	r := bufio.NewReader(strings.NewReader("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"))
	r.Peek(1)
	assert.True(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandDetectsSimpleLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("+OK\r\n"))
	r.Peek(1)
	assert.True(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandFalseOnPartialSimpleLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("+O"))
	r.Peek(1)
	assert.False(t, HasCompleteCommand(r))
}

func TestEncodeSimpleStringAndError(t *testing.T) {
	assert.Equal(t, "+OK\r\n", string(Encode(reply.SimpleString("OK"), RESP2)))
	assert.Equal(t, "-ERR bad\r\n", string(Encode(reply.Error("ERR bad"), RESP2)))
}

func TestEncodeIntegerAndBulkString(t *testing.T) {
	assert.Equal(t, ":42\r\n", string(Encode(reply.Integer(42), RESP2)))
	assert.Equal(t, "$5\r\nhello\r\n", string(Encode(reply.Bulk("hello"), RESP2)))
	assert.Equal(t, "$-1\r\n", string(Encode(reply.NullBulk(), RESP2)))
}

func TestEncodeArray(t *testing.T) {
	r := reply.Array(reply.Integer(1), reply.Bulk("x"))
	assert.Equal(t, "*2\r\n:1\r\n$1\r\nx\r\n", string(Encode(r, RESP2)))
}

func TestEncodeNullArrayDiffersByVersion(t *testing.T) {
	assert.Equal(t, "*-1\r\n", string(Encode(reply.NullArray(), RESP2)))
	assert.Equal(t, "_\r\n", string(Encode(reply.NullArray(), RESP3)))
}

func TestEncodeExplicitNullDiffersByVersion(t *testing.T) {
	assert.Equal(t, "$-1\r\n", string(Encode(reply.Null(), RESP2)))
	assert.Equal(t, "_\r\n", string(Encode(reply.Null(), RESP3)))
}

func TestEncodeBooleanDiffersByVersion(t *testing.T) {
	assert.Equal(t, ":1\r\n", string(Encode(reply.Boolean(true), RESP2)))
	assert.Equal(t, ":0\r\n", string(Encode(reply.Boolean(false), RESP2)))
	assert.Equal(t, "#t\r\n", string(Encode(reply.Boolean(true), RESP3)))
	assert.Equal(t, "#f\r\n", string(Encode(reply.Boolean(false), RESP3)))
}

func TestEncodeDoubleDiffersByVersion(t *testing.T) {
	assert.Equal(t, "$3\r\n1.5\r\n", string(Encode(reply.Double(1.5), RESP2)))
	assert.Equal(t, ",1.5\r\n", string(Encode(reply.Double(1.5), RESP3)))
}

func TestEncodeMapFlattensOnRESP2(t *testing.T) {
	m := reply.Map([]reply.Reply{reply.Bulk("k")}, []reply.Reply{reply.Integer(1)})
	assert.Equal(t, "*2\r\n$1\r\nk\r\n:1\r\n", string(Encode(m, RESP2)))
	assert.Equal(t, "%1\r\n$1\r\nk\r\n:1\r\n", string(Encode(m, RESP3)))
}

func TestEncodeSetDiffersByVersion(t *testing.T) {
	s := reply.Set(reply.Bulk("a"))
	assert.Equal(t, "*1\r\n$1\r\na\r\n", string(Encode(s, RESP2)))
	assert.Equal(t, "~1\r\n$1\r\na\r\n", string(Encode(s, RESP3)))
}

func TestEncodePushDiffersByVersion(t *testing.T) {
	p := reply.Push(reply.Bulk("message"), reply.Bulk("ch"), reply.Bulk("hi"))
	assert.Equal(t, "*3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$2\r\nhi\r\n", string(Encode(p, RESP2)))
	assert.Equal(t, ">3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$2\r\nhi\r\n", string(Encode(p, RESP3)))
}
