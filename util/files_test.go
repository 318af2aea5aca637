package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMD5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	sum, err := MD5File(path)
	require.NoError(t, err)
	require.Equal(t, "900150983cd24fb0d6963f7d28e17f72", sum)

	_, err = MD5File(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
