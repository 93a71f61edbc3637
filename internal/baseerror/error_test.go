package baseerror

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	root := New("root")
	child := root.New("child")

	assert.ErrorIs(t, child, root)
	assert.NotErrorIs(t, root, child)
}

func TestError_Wrap(t *testing.T) {
	root := New("discovery failed")
	conn := root.New("connection failed")

	err := conn.Wrap(io.EOF, "10.0.0.1:11211")

	assert.ErrorIs(t, err, conn)
	assert.ErrorIs(t, err, root)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "connection failed: 10.0.0.1:11211: EOF", err.Error())
}

func TestError_Detail(t *testing.T) {
	kind := New("bad config")
	err := kind.Detail("port is not a number")

	assert.ErrorIs(t, err, kind)
	assert.Equal(t, "bad config: port is not a number", err.Error())

	var target *Error
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, kind, target)
}
