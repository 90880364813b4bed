package export

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenames(t *testing.T) {
	assert.Equal(t, "summer-sale_visits.csv", CSVFilename("summer-sale"))
	assert.Equal(t, "summer-sale.png", QRFilename("summer-sale"))
	assert.Equal(t, "a_b_visits.csv", CSVFilename("a/b"))
	assert.Equal(t, "link.png", QRFilename(""))
}

func TestShortURL(t *testing.T) {
	assert.Equal(t, "https://scanaqr.com/promo", ShortURL("https://scanaqr.com/", "promo"))
	assert.Equal(t, "https://scanaqr.com/promo", ShortURL("https://scanaqr.com", "/promo"))
}

func TestQRCode(t *testing.T) {
	data, err := QRCode("https://scanaqr.com", "promo", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	data, err = QRCode("https://scanaqr.com", "promo", 99999)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())

	_, err = QRCode("https://scanaqr.com", "", 128)
	assert.Error(t, err)
}

func TestAttachment(t *testing.T) {
	assert.Equal(t, `attachment; filename=promo_visits.csv`, Attachment("promo_visits.csv"))
}
