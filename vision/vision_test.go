// vision_test.go - Tests fuer Dekodierung, Skalierung und Normalisierung
package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func solidImage(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not an image")); err == nil {
		t.Fatal("Decode akzeptierte ungueltige Daten")
	}
}

func TestResize(t *testing.T) {
	img := Resize(solidImage(color.RGBA{R: 255, A: 255}, 100, 60), FeatureSize, FeatureSize)

	bounds := img.Bounds()
	if bounds.Dx() != FeatureSize || bounds.Dy() != FeatureSize {
		t.Errorf("Resize = %dx%d, erwartet %dx%d", bounds.Dx(), bounds.Dy(), FeatureSize, FeatureSize)
	}
}

func TestNormalizeCHW(t *testing.T) {
	// reines Rot: R-Kanal 1.0, G und B 0.0 vor der Normalisierung
	img := solidImage(color.RGBA{R: 255, A: 255}, 4, 4)
	out := Normalize(img, StandardMean, StandardStd)

	if len(out) != 3*4*4 {
		t.Fatalf("Feature-Laenge = %d, erwartet %d", len(out), 3*4*4)
	}

	// CHW: erst alle R-Werte, dann G, dann B
	for i := 0; i < 16; i++ {
		if math.Abs(out[i]-1) > 1e-6 {
			t.Fatalf("R[%d] = %g, erwartet 1", i, out[i])
		}
		if math.Abs(out[16+i]+1) > 1e-6 {
			t.Fatalf("G[%d] = %g, erwartet -1", i, out[16+i])
		}
		if math.Abs(out[32+i]+1) > 1e-6 {
			t.Fatalf("B[%d] = %g, erwartet -1", i, out[32+i])
		}
	}
}

func TestFeatures(t *testing.T) {
	data := encodePNG(t, solidImage(color.RGBA{B: 255, A: 255}, 10, 20))

	features, err := Features(data)
	if err != nil {
		t.Fatal(err)
	}

	want := 3 * FeatureSize * FeatureSize
	if len(features) != want {
		t.Fatalf("Features-Laenge = %d, erwartet %d", len(features), want)
	}

	// blaues Bild: B-Kanal bei 1, R und G bei -1
	size := FeatureSize * FeatureSize
	if math.Abs(features[0]+1) > 1e-6 {
		t.Errorf("R[0] = %g, erwartet -1", features[0])
	}
	if math.Abs(features[2*size]-1) > 1e-6 {
		t.Errorf("B[0] = %g, erwartet 1", features[2*size])
	}
}
