package testkit

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Upload is one file part of a multipart request.
type Upload struct {
	Name string
	Data []byte
}

// Multipart builds a multipart/form-data body with files under the "files"
// field and fields as plain values.
func Multipart(t testing.TB, uploads []Upload, fields map[string]string) (body *bytes.Buffer, contentType string) {
	t.Helper()

	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, u := range uploads {
		part, err := w.CreateFormFile("files", u.Name)
		if err != nil {
			t.Fatalf("create form file %s: %v", u.Name, err)
		}
		if _, err := part.Write(u.Data); err != nil {
			t.Fatalf("write form file %s: %v", u.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

// NewMultipartRequest returns a POST request carrying the uploads and fields.
func NewMultipartRequest(t testing.TB, path string, uploads []Upload, fields map[string]string) *http.Request {
	t.Helper()
	body, contentType := Multipart(t, uploads, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// Serve runs req against handler and returns the recorder with its body read.
func Serve(t testing.TB, handler http.Handler, req *http.Request) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return rec, body
}
