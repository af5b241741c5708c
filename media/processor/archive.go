package processor

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zip"
	apperrors "github.com/leeforge/imgpress/errors"
)

// PackageZip returns a ZIP archive with one Deflate entry per batch item, in
// batch order.
func PackageZip(batch *BatchResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteZip streams the archive to w. Entries carry no modification time so
// identical batches produce identical archives.
func WriteZip(w io.Writer, batch *BatchResult) error {
	if batch == nil || batch.Len() == 0 {
		return apperrors.NewValidation("empty batch")
	}

	zw := zip.NewWriter(w)
	for _, item := range batch.Items {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:   item.Filename,
			Method: zip.Deflate,
		})
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "cannot create archive entry").
				WithDetail("name", item.Filename)
		}
		if _, err := entry.Write(item.Data); err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "cannot write archive entry").
				WithDetail("name", item.Filename)
		}
	}
	if err := zw.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "cannot finalize archive")
	}
	return nil
}
