package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel("info")
	})

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")

	SetLevel("DEBUG")
	Debugf("trace")
	assert.Contains(t, buf.String(), "trace")

	L().Info("structured", "model", "heart")
	assert.Contains(t, buf.String(), "model=heart")
}
