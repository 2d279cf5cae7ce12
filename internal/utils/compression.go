package utils

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzip files start with \x1f\x8b
var gzipMagic = []byte{0x1f, 0x8b}

// IsGzip reports whether data carries the gzip magic prefix
func IsGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
