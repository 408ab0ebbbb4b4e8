package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// parsePages parses a page selection such as "1-3,7" against a document of
// n pages. An empty selection or "all" selects every page.
func parsePages(sel string, n int) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || sel == "all" {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = a, b
		}
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid page selection %q", part)
		}
		last, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid page selection %q", part)
		}
		if first < 1 || last > n || first > last {
			return nil, fmt.Errorf("page selection %q outside 1-%d", part, n)
		}
		for p := first; p <= last; p++ {
			seen[p] = true
		}
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// imageEncoder writes img to w in one image format.
type imageEncoder func(w io.Writer, img image.Image) error

// imageEncoders maps --format values to encoders.
var imageEncoders = map[string]imageEncoder{
	"png":  png.Encode,
	"bmp":  bmp.Encode,
	"tiff": func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}) },
}

func encoderFor(format string) (imageEncoder, error) {
	enc, ok := imageEncoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown image format %q (png, bmp or tiff)", format)
	}
	return enc, nil
}

func writeImage(path string, img image.Image, enc imageEncoder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := enc(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
