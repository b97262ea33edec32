package sse

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingReader struct {
	io.Reader
	closed bool
}

func (c *closingReader) Close() error {
	c.closed = true
	return nil
}

func TestHTTPBodyEventStreamYieldsRecordsThenEOF(t *testing.T) {
	body := &closingReader{Reader: strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
			"data: [DONE]\n\n",
	)}
	stream := NewHTTPBodyEventStream(body)
	ctx := context.Background()

	event, data, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "", event)
	assert.Contains(t, data, "hi")

	_, _, ok, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, stream.Close())
	assert.True(t, body.closed)
}

func TestHTTPBodyEventStreamHandlesUnterminatedFinalRecord(t *testing.T) {
	body := &closingReader{Reader: strings.NewReader("data: {\"a\":1}")}
	stream := NewHTTPBodyEventStream(body)
	ctx := context.Background()

	_, data, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, data)

	_, _, ok, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPBodyEventStreamRespectsCancellation(t *testing.T) {
	body := &closingReader{Reader: strings.NewReader("")}
	stream := NewHTTPBodyEventStream(body)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, ok, err := stream.Next(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}
