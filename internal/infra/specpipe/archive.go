package specpipe

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"exmcp/internal/domain"
)

// entry is one retained archive member. Entries live only for the duration
// of a single pipeline invocation.
type entry struct {
	path string
	data []byte
}

// Limits bound what an archive may cost this process.
type Limits struct {
	MaxArchiveBytes int64
	MaxEntryBytes   int64
	MaxEntries      int
}

func (l Limits) withDefaults() Limits {
	if l.MaxArchiveBytes <= 0 {
		l.MaxArchiveBytes = domain.DefaultMaxArchiveBytes
	}
	if l.MaxEntryBytes <= 0 {
		l.MaxEntryBytes = domain.DefaultMaxEntryBytes
	}
	if l.MaxEntries <= 0 {
		l.MaxEntries = domain.DefaultMaxArchiveEntries
	}
	return l
}

var retainedExtensions = map[string]struct{}{
	".yaml": {},
	".yml":  {},
	".json": {},
	".raml": {},
}

// extractArchive unpacks a zip held in memory. Entries escaping the
// archive root (.. segments, absolute paths) fail the whole extraction:
// they mark a hostile or corrupted archive. Entries with unrecognized
// extensions are expected noise and are skipped silently. The returned
// name list covers every member, retained or not.
func extractArchive(data []byte, limits Limits) ([]entry, []string, error) {
	const op = "specpipe.extract"
	limits = limits.withDefaults()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, domain.E(domain.CodeMalformedArchive, op, "not a valid zip archive", err)
	}

	if len(reader.File) > limits.MaxEntries {
		return nil, nil, domain.E(domain.CodeMalformedArchive, op,
			fmt.Sprintf("archive has %d entries, limit is %d", len(reader.File), limits.MaxEntries), nil)
	}

	var entries []entry
	var names []string
	for _, f := range reader.File {
		name := f.Name
		names = append(names, name)

		if err := checkEntryPath(name); err != nil {
			return nil, nil, domain.E(domain.CodeMalformedArchive, op, "", err)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > uint64(limits.MaxEntryBytes) {
			return nil, nil, domain.E(domain.CodeArchiveTooLarge, op,
				fmt.Sprintf("entry %q exceeds %d bytes", name, limits.MaxEntryBytes), nil)
		}
		if _, ok := retainedExtensions[strings.ToLower(path.Ext(name))]; !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, nil, domain.E(domain.CodeMalformedArchive, op,
				fmt.Sprintf("open entry %q", name), err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, limits.MaxEntryBytes+1))
		rc.Close()
		if err != nil {
			return nil, nil, domain.E(domain.CodeMalformedArchive, op,
				fmt.Sprintf("read entry %q", name), err)
		}
		if int64(len(content)) > limits.MaxEntryBytes {
			// The declared size lied; treat it like any oversized entry.
			return nil, nil, domain.E(domain.CodeArchiveTooLarge, op,
				fmt.Sprintf("entry %q exceeds %d bytes", name, limits.MaxEntryBytes), nil)
		}

		entries = append(entries, entry{path: name, data: content})
	}
	return entries, names, nil
}

// checkEntryPath rejects members that would escape a scratch directory if
// written to disk.
func checkEntryPath(name string) error {
	if name == "" {
		return fmt.Errorf("archive entry with empty name")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return fmt.Errorf("archive entry %q uses an absolute path", name)
	}
	if len(name) >= 2 && name[1] == ':' {
		return fmt.Errorf("archive entry %q uses a drive-qualified path", name)
	}
	for _, segment := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return fmt.Errorf("archive entry %q traverses outside the archive root", name)
		}
	}
	return nil
}
