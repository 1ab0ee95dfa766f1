package common

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))

	data := []uint32{1, 2}
	b := SliceToBytes(data)
	assert.Len(t, b, 8)
	if NativeLittleEndian() {
		assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, b)
	}
}

func TestStructToBytes(t *testing.T) {
	v := struct{ A, B uint16 }{A: 1, B: 2}
	assert.Len(t, StructToBytes(&v), 4)
}

func TestLoggerDefaultsToSilent(t *testing.T) {
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("pipeline registered", "key", "triangle")
	assert.Contains(t, buf.String(), "key=triangle")

	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}
