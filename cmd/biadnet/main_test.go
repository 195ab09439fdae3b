package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biadnet/go-biadnet/store"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestPutSketch(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, content := range []string{"first", "second", "third"} {
		name := filepath.Join(dir, content+".txt")
		require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
		files = append(files, name)
	}
	data := filepath.Join(dir, "data")

	out := execute(t, append([]string{"put", "-d", data, "--buckets", "64"}, files...)...)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], store.ContentID([]byte("first")).String()))

	out = execute(t, "sketch", "-d", data, "--buckets", "64")
	require.Contains(t, out, "buckets:    64\n")
	require.Contains(t, out, "content:    3\n")
	require.Contains(t, out, "tip:        "+store.ContentID([]byte("third")).String())
	require.Contains(t, out, "overloaded: false\n")
}

func TestSketchMismatch(t *testing.T) {
	data := t.TempDir()
	execute(t, "sketch", "-d", data, "--buckets", "64")
	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"sketch", "-d", data, "--buckets", "128"})
	require.ErrorIs(t, root.Execute(), store.ErrSketchMismatch)
}
