package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		sel     string
		n       int
		want    []int
		wantErr bool
	}{
		{"", 3, []int{1, 2, 3}, false},
		{"all", 2, []int{1, 2}, false},
		{"2", 5, []int{2}, false},
		{"1-3,7", 8, []int{1, 2, 3, 7}, false},
		{"5, 1-2, 2", 5, []int{1, 2, 5}, false},
		{"0", 5, nil, true},
		{"4-2", 5, nil, true},
		{"1-9", 5, nil, true},
		{"x", 5, nil, true},
		{"1-", 5, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got, err := parsePages(tt.sel, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePages(%q) error = %v, wantErr %v", tt.sel, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePages(%q) = %v, want %v", tt.sel, got, tt.want)
			}
		})
	}
}

func TestWriteImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})

	decoders := map[string]func([]byte) (image.Image, error){
		"png":  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		"bmp":  func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
		"tiff": func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) },
	}
	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			enc, err := encoderFor(format)
			if err != nil {
				t.Fatalf("encoderFor() error = %v", err)
			}
			path := filepath.Join(t.TempDir(), "page."+format)
			if err := writeImage(path, img, enc); err != nil {
				t.Fatalf("writeImage() error = %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			got, err := decode(data)
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if got.Bounds() != img.Bounds() {
				t.Errorf("bounds = %v, want %v", got.Bounds(), img.Bounds())
			}
			if r, _, _, _ := got.At(1, 1).RGBA(); r>>8 != 0xff {
				t.Errorf("pixel (1,1) red = %d, want 255", r>>8)
			}
		})
	}

	if _, err := encoderFor("gif"); err == nil {
		t.Error("encoderFor(gif) expected error")
	}
}
