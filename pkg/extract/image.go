package extract

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// saveTemp writes the preprocessed image to name, removing the file again
// when the encode fails so no half-written temp file is left behind.
func saveTemp(img image.Image, name string) error {
	if err := imaging.Save(img, name); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// extractImage runs Tesseract OCR over the full image after light
// preprocessing (grayscale, upscale of small inputs). Single pass, no retry.
func extractImage(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}

	// OCR reads from disk, so write the preprocessed variant to a temp file.
	// Fall back to the original on any temp-file trouble.
	tmp := path
	if tmpFile, err := os.CreateTemp("", "ocr-*.png"); err == nil {
		name := tmpFile.Name()
		_ = tmpFile.Close()
		if saveTemp(gray, name) == nil {
			tmp = name
		}
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	client.SetImage(tmp)
	text, err := client.Text()
	if tmp != path {
		_ = os.Remove(tmp)
	}
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}
