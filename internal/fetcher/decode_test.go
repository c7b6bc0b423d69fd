package fetcher

import (
	"bytes"
	"errors"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

func TestDecompress(t *testing.T) {
	const page = "<html><body>compressed</body></html>"

	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	_, _ = zw.Write([]byte(page))
	_ = zw.Close()

	var fbuf bytes.Buffer
	fw, _ := flate.NewWriter(&fbuf, flate.DefaultCompression)
	_, _ = fw.Write([]byte(page))
	_ = fw.Close()

	var bbuf bytes.Buffer
	bw := brotli.NewWriter(&bbuf)
	_, _ = bw.Write([]byte(page))
	_ = bw.Close()

	tests := []struct {
		name     string
		raw      []byte
		encoding string
	}{
		{name: "identity", raw: []byte(page), encoding: ""},
		{name: "gzip", raw: gzipBytes(t, page), encoding: "gzip"},
		{name: "zlib deflate", raw: zbuf.Bytes(), encoding: "deflate"},
		{name: "raw deflate", raw: fbuf.Bytes(), encoding: "deflate"},
		{name: "brotli", raw: bbuf.Bytes(), encoding: "br"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decompress(tt.raw, tt.encoding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != page {
				t.Errorf("decompress() = %q, want %q", got, page)
			}
		})
	}
}

func TestDecompress_Unsupported(t *testing.T) {
	_, err := decompress([]byte("x"), "compress")
	if !errors.Is(err, errUnsupportedEncoding) {
		t.Errorf("error = %v, want errUnsupportedEncoding", err)
	}
}

func TestToUTF8(t *testing.T) {
	// "café" in ISO-8859-1.
	latin1 := []byte("<html><body>caf\xe9</body></html>")

	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{name: "utf-8 passthrough", body: []byte("<p>café</p>"), contentType: "text/html; charset=utf-8", want: "<p>café</p>"},
		{name: "undeclared utf-8", body: []byte("<p>café</p>"), contentType: "text/html", want: "<p>café</p>"},
		{name: "declared latin1", body: latin1, contentType: "text/html; charset=iso-8859-1", want: "<html><body>café</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toUTF8(tt.body, tt.contentType); got != tt.want {
				t.Errorf("toUTF8() = %q, want %q", got, tt.want)
			}
		})
	}
}
