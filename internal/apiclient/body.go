package apiclient

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/rotisserie/eris"
)

// File is a single file part of a multipart upload.
type File struct {
	FieldName   string // default "file"
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody is sent as multipart/form-data with a generated boundary.
// Any caller-supplied Content-Type header is dropped.
type MultipartBody struct {
	Fields map[string]string
	Files  []File
}

func (m *MultipartBody) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", eris.Wrapf(err, "apiclient: write field %s", k)
		}
	}
	for _, f := range m.Files {
		field := f.FieldName
		if field == "" {
			field = "file"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", eris.Wrapf(err, "apiclient: create part %s", f.Name)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", eris.Wrapf(err, "apiclient: write part %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "apiclient: close multipart writer")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// bodyKind says how the Content-Type header is treated.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyMultipart
	bodyRaw
)

type encodedBody struct {
	data        []byte
	contentType string
	kind        bodyKind
}

// encodeBody buffers the request body so every retry can replay it.
// Structured values become JSON; multipart and raw payloads pass through.
func encodeBody(body any) (encodedBody, error) {
	switch b := body.(type) {
	case nil:
		return encodedBody{kind: bodyNone}, nil
	case *MultipartBody:
		data, ct, err := b.encode()
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{data: data, contentType: ct, kind: bodyMultipart}, nil
	case []byte:
		return encodedBody{data: b, kind: bodyRaw}, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return encodedBody{}, eris.Wrap(err, "apiclient: read raw body")
		}
		return encodedBody{data: data, kind: bodyRaw}, nil
	case json.RawMessage:
		return encodedBody{data: b, contentType: "application/json", kind: bodyJSON}, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return encodedBody{}, eris.Wrap(err, "apiclient: marshal json body")
		}
		return encodedBody{data: data, contentType: "application/json", kind: bodyJSON}, nil
	}
}
