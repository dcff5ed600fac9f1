package staticblog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	imagesSubdir  = "images"
)

// isResizable reports whether rel (a slash-separated path relative to the
// static dir) is an image the generator should shrink.
func isResizable(rel string) bool {
	if !strings.HasPrefix(rel, imagesSubdir+"/") {
		return false
	}
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// resizeImage shrinks images wider than maxImageWidth, keeping the aspect
// ratio and the original encoding. Narrower images are returned unchanged
// with resized == false.
func resizeImage(data []byte) (out []byte, resized bool, err error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxImageWidth {
		return data, false, nil
	}

	newH := h * maxImageWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		return data, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), true, nil
}
