package binding

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/leeforge/imgpress/errors"
)

// DefaultFileField is the multipart field uploads are read from.
const DefaultFileField = "files"

// Upload is one uploaded file read into memory.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// MultipartLimits bounds a multipart bind.
type MultipartLimits struct {
	// MaxMemory is passed to ParseMultipartForm; larger parts spill to disk.
	MaxMemory int64
	// MaxFiles caps the number of uploads. 0 means unlimited.
	MaxFiles  int
	FileField string
}

// Multipart parses a multipart form, binds its non-file fields into v using
// `form` tags and returns the uploaded files in request order.
//
// A body over the http.MaxBytesReader limit or more than MaxFiles uploads
// yields a too_large AppError.
func Multipart(r *http.Request, v any, limits MultipartLimits) ([]Upload, error) {
	if limits.MaxMemory <= 0 {
		limits.MaxMemory = 32 << 20
	}
	if limits.FileField == "" {
		limits.FileField = DefaultFileField
	}

	if err := r.ParseMultipartForm(limits.MaxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperrors.New(apperrors.ErrorTypeTooLarge, "request body too large").
				WithDetail("limit", tooBig.Limit).
				WithInnerError(err)
		}
		return nil, &BindError{
			Type:    "bind_error",
			Message: "invalid multipart form: " + err.Error(),
		}
	}

	if v != nil {
		if err := bindValues(NewFormParser(), r.MultipartForm.Value, v); err != nil {
			return nil, err
		}
	}

	headers := r.MultipartForm.File[limits.FileField]
	if len(headers) == 0 {
		return nil, &BindError{
			Type:    "validation_error",
			Field:   limits.FileField,
			Message: "is required",
		}
	}
	if limits.MaxFiles > 0 && len(headers) > limits.MaxFiles {
		return nil, apperrors.New(apperrors.ErrorTypeTooLarge, "too many files").
			WithDetail("limit", limits.MaxFiles).
			WithDetail("count", len(headers))
	}

	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		upload, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "cannot open upload").
			WithDetail("name", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "cannot read upload").
			WithDetail("name", fh.Filename)
	}
	return Upload{
		Name:        fh.Filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
