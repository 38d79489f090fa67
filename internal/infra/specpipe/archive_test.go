package specpipe

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"exmcp/internal/domain"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractArchiveRejectsPathTraversal(t *testing.T) {
	data := buildZip(t, map[string]string{
		"../../etc/passwd": "root:x:0:0",
		"api.yaml":         "openapi: 3.0.0",
	})

	_, _, err := extractArchive(data, Limits{})
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedArchive))
}

func TestExtractArchiveRejectsAbsolutePaths(t *testing.T) {
	data := buildZip(t, map[string]string{"/etc/passwd": "root:x:0:0"})

	_, _, err := extractArchive(data, Limits{})
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedArchive))
}

func TestExtractArchiveRejectsGarbage(t *testing.T) {
	_, _, err := extractArchive([]byte("definitely not a zip"), Limits{})
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedArchive))
}

func TestExtractArchiveEnforcesEntryCount(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 5; i++ {
		files[strings.Repeat("a", i+1)+".yaml"] = "x: 1"
	}
	data := buildZip(t, files)

	_, _, err := extractArchive(data, Limits{MaxEntries: 3})
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedArchive))
}

func TestExtractArchiveEnforcesEntrySize(t *testing.T) {
	data := buildZip(t, map[string]string{
		"api.yaml": strings.Repeat("a", 2048),
	})

	_, _, err := extractArchive(data, Limits{MaxEntryBytes: 1024})
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeArchiveTooLarge))
}

func TestExtractArchiveSkipsUnrecognizedExtensionsSilently(t *testing.T) {
	data := buildZip(t, map[string]string{
		"api.yaml":                  "openapi: 3.0.0",
		"logo.png":                  "\x89PNG",
		"readme.md":                 "# readme",
		"exchange_modules/lib.raml": "#%RAML 1.0 Library",
	})

	entries, names, err := extractArchive(data, Limits{})
	require.NoError(t, err)
	require.Len(t, names, 4)

	var kept []string
	for _, e := range entries {
		kept = append(kept, e.path)
	}
	require.ElementsMatch(t, []string{"api.yaml", "exchange_modules/lib.raml"}, kept)
}
