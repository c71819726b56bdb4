// MODUL: vision
// ZWECK: Bild-Dekodierung und Feature-Extraktion fuer ImageClassification
// INPUT: Rohe Bilddaten (PNG, JPEG, BMP)
// OUTPUT: float64-Features im CHW Format, normalisiert
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: image, golang.org/x/image
// HINWEISE: Bilder werden auf FeatureSize x FeatureSize skaliert

package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// FeatureSize ist die Kantenlaenge, auf die Bilder skaliert werden
const FeatureSize = 32

// Standard-Normalisierungswerte (auf [-1, 1])
var (
	StandardMean = [3]float64{0.5, 0.5, 0.5}
	StandardStd  = [3]float64{0.5, 0.5, 0.5}
)

// Decode dekodiert rohe Bilddaten
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Resize skaliert ein Bild bilinear auf w x h
func Resize(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Normalize normalisiert ein Bild mit gegebenen mean/std Werten
// Gibt einen float64-Slice im CHW Format zurueck (Channel-First)
func Normalize(img image.Image, mean, std [3]float64) []float64 {
	bounds := img.Bounds()
	h := bounds.Dy()
	w := bounds.Dx()
	size := h * w

	// Pre-allozieren fuer CHW Layout
	result := make([]float64, size*3)
	rOffset := 0
	gOffset := size
	bOffset := size * 2

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := extractRGB(img, x, y)

			result[rOffset+idx] = (r - mean[0]) / std[0]
			result[gOffset+idx] = (g - mean[1]) / std[1]
			result[bOffset+idx] = (b - mean[2]) / std[2]
			idx++
		}
	}

	return result
}

// extractRGB holt RGB-Werte als float64 im Bereich [0,1]
func extractRGB(img image.Image, x, y int) (float64, float64, float64) {
	c := img.At(x, y)
	r, g, b, _ := c.RGBA()
	// RGBA gibt 16-bit Werte zurueck, auf 8-bit konvertieren
	return float64(r>>8) / 255.0, float64(g>>8) / 255.0, float64(b>>8) / 255.0
}

// Features dekodiert, skaliert und normalisiert ein Bild zu einem
// Feature-Vektor der Laenge 3 * FeatureSize * FeatureSize
func Features(data []byte) ([]float64, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Normalize(Resize(img, FeatureSize, FeatureSize), StandardMean, StandardStd), nil
}
