package rda_test

import (
	"testing"

	"github.com/brownbnc/mrsuploader/internal/rda"
	"github.com/stretchr/testify/assert"
)

func TestSeriesFromFilename(t *testing.T) {
	assert.Equal(t, "mrs-press-acc", rda.SeriesFromFilename("meas_MID00123_FID4567_mrs-press-acc.dat"))
	assert.Equal(t, "svs_se_30", rda.SeriesFromFilename("MEAS_mid1_fid2_svs_se_30.DAT"))
	assert.Equal(t, "", rda.SeriesFromFilename("random.dat"))
	assert.Equal(t, "", rda.SeriesFromFilename("meas_onlyone.dat"))
}

func TestNormalizeSeriesKey(t *testing.T) {
	assert.Equal(t, "mrspressacc", rda.NormalizeSeriesKey("mrs-press_ACC"))
	assert.Equal(t, "", rda.NormalizeSeriesKey("_-_"))
}

func TestBestMatch(t *testing.T) {
	candidates := []rda.Identity{
		{Project: "P", Subject: "S", Experiment: "E", ScanID: "9", SeriesDescription: "svs_se_occ"},
		{Project: "P", Subject: "S", Experiment: "E", ScanID: "7", SeriesDescription: "mrs_press_ACC"},
	}

	match, ok := rda.BestMatch("meas_MID00123_FID4567_mrs-press-acc.dat", candidates)
	assert.True(t, ok)
	assert.Equal(t, "7", match.ScanID)

	// Series overlap alone is enough.
	match, ok = rda.BestMatch("meas_MID000_FID000_svs-se-occ.dat", candidates)
	assert.True(t, ok)
	assert.Equal(t, "9", match.ScanID)

	// No score at all.
	_, ok = rda.BestMatch("meas_MIDx_FIDx_unrelated.dat", []rda.Identity{
		{ScanID: "3", SeriesDescription: "pressacc"},
	})
	assert.False(t, ok)

	// Candidates without a series description are skipped.
	_, ok = rda.BestMatch("meas_MIDx_FIDx_whatever.dat", []rda.Identity{{ScanID: "1"}})
	assert.False(t, ok)
}
