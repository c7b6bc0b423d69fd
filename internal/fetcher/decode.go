package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html/charset"
)

// maxBodySize caps both the wire body and its decompressed form.
const maxBodySize = 10 << 20

var errUnsupportedEncoding = errors.New("unsupported content encoding")

// decompress undoes Content-Encoding. Because the request sets
// Accept-Encoding explicitly, net/http leaves the body compressed.
func decompress(raw []byte, contentEncoding string) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	var r io.Reader
	switch enc {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	case "deflate":
		// Servers disagree on whether "deflate" means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer func() { _ = zr.Close() }()
			r = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer func() { _ = fr.Close() }()
			r = fr
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedEncoding, contentEncoding)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", enc, err)
	}
	return out, nil
}

// toUTF8 converts body to UTF-8 using the Content-Type charset, a BOM or a
// <meta charset> declaration. Undeclared bodies that are already valid UTF-8
// are returned unchanged.
func toUTF8(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
