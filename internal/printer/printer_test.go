package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)

	noColor := color.NoColor
	color.NoColor = true

	t.Cleanup(func() {
		restore()
		color.NoColor = noColor
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", errOut.String())
	})

	t.Run("single suggestion is printed verbatim", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := captureOutput(t)

	context := map[string]string{
		"Table":    "instruments",
		"Instance": "test-instance",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Error(t, err)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Instance: test-instance\n  Table: instruments\n")
}

func TestMessages(t *testing.T) {
	out, _ := captureOutput(t)

	Success("Started %s\n", "redis")
	Success("✓ Already prefixed\n")
	Warning("Careful\n")
	Step("Connecting\n")
	Info("plain %d\n", 1)

	assert.Equal(t, "✓ Started redis\n"+
		"✓ Already prefixed\n"+
		"⚠️  Careful\n"+
		"→ Connecting\n"+
		"plain 1\n", out.String())
}

func TestTable(t *testing.T) {
	out, _ := captureOutput(t)

	err := Table([]string{"Instance", "Status"}, [][]string{
		{"default", "Running"},
		{"band-room", "Stopped"},
	})
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "default")
	assert.Contains(t, rendered, "band-room")
	assert.Contains(t, rendered, "Running")
	assert.Contains(t, rendered, "Stopped")
}
