package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintVersionInfo(t *testing.T) {
	v := Versions{Version: "1.2.3", GolangVersion: "go1.22.5", BuildTime: "2024-06-01T10:00:00Z"}

	var buf bytes.Buffer
	require.NoError(t, printVersionInfo(&buf, v, false))
	assert.Equal(t, "Core Version: v1.2.3\nGo Version: go1.22.5\nBuild Time: 2024-06-01T10:00:00Z\n", buf.String())

	buf.Reset()
	require.NoError(t, printVersionInfo(&buf, v, true))
	assert.JSONEq(t, `{"version":"1.2.3","golang_version":"go1.22.5","build_time":"2024-06-01T10:00:00Z"}`, buf.String())
}
