package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connector-vision/internal/domain/entity"
)

func uniformGray(w, h int, v uint8) entity.GrayImage {
	g := entity.NewGrayImage(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestBresenhamSamples(t *testing.T) {
	img := uniformGray(10, 10, 100)
	img.Pix[5*10+3] = 7

	s := bresenhamSamples(img, 0, 5, 9, 5)
	require.Len(t, s, 10)
	assert.Equal(t, 7.0, s[3])

	// диагональ
	assert.Len(t, bresenhamSamples(img, 0, 0, 9, 9), 10)
	// обратное направление
	assert.Len(t, bresenhamSamples(img, 9, 5, 0, 5), 10)
	// точки вне изображения пропускаются
	assert.Len(t, bresenhamSamples(img, -5, 5, 4, 5), 5)
}

func TestExtractBandProfile_FullBand(t *testing.T) {
	img := uniformGray(20, 20, 50)
	profile, lines := extractBandProfile(img, 2, 10, 17, 10)
	assert.Equal(t, 2*bandHalfWidth+1, lines)
	require.Len(t, profile, 16)
	for _, v := range profile {
		assert.Equal(t, 50.0, v)
	}
}

func TestExtractBandProfile_AveragesRows(t *testing.T) {
	img := uniformGray(20, 20, 0)
	for x := 0; x < 20; x++ {
		img.Pix[11*20+x] = 70
	}
	profile, lines := extractBandProfile(img, 0, 10, 19, 10)
	require.Equal(t, 7, lines)
	assert.InDelta(t, 10.0, profile[0], 1e-9)
}

func TestExtractBandProfile_EdgeOfImage(t *testing.T) {
	img := uniformGray(20, 20, 50)
	// у верхней кромки выживают только смещения 0..+3
	_, lines := extractBandProfile(img, 0, 0, 19, 0)
	assert.Equal(t, 4, lines)
	assert.False(t, lines < minBandLines)

	thin := uniformGray(20, 3, 50)
	_, lines = extractBandProfile(thin, 0, 0, 19, 0)
	assert.Equal(t, 3, lines)
	assert.True(t, lines < minBandLines)
}

func TestExtractBandProfile_OutsideImage(t *testing.T) {
	img := uniformGray(10, 10, 50)
	profile, lines := extractBandProfile(img, 20, 20, 30, 20)
	assert.Empty(t, profile)
	assert.Equal(t, 0, lines)
}

func TestExtractBandProfile_DiagonalCountsDistinctOffsets(t *testing.T) {
	img := uniformGray(100, 100, 40)
	// на 45° смещения ±1 и ±2 округляются в одни и те же пиксели
	profile, lines := extractBandProfile(img, 20, 20, 70, 70)
	assert.Equal(t, 5, lines)
	require.Len(t, profile, 51)
	assert.InDelta(t, 40.0, profile[25], 1e-9)
}
