package zip

import (
	"archive/zip"
	"fmt"
	"io"
)

// Entry is one file of an archive. Open is used when set, otherwise Data.
type Entry struct {
	Filename string
	Data     []byte
	Open     func() (io.ReadCloser, error)
}

// Write streams entries into a zip archive on w.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if err := writeEntry(zw, entry); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, entry Entry) error {
	fw, err := zw.Create(entry.Filename)
	if err != nil {
		return fmt.Errorf("zip %s: %w", entry.Filename, err)
	}
	if entry.Open == nil {
		_, err = fw.Write(entry.Data)
		return err
	}
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Filename, err)
	}
	defer rc.Close()
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("copy %s: %w", entry.Filename, err)
	}
	return nil
}
