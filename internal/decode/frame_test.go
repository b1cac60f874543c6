package decode

import "testing"

func TestPictureTypeToFilterFallsBackToIFrame(t *testing.T) {
	cases := []struct {
		in   pictureType
		want FrameFilter
	}{
		{pictureTypeI, FilterIFrames},
		{pictureTypeP, FilterPFrames},
		{pictureTypeB, FilterBFrames},
		{pictureTypeNone, FilterIFrames},
		{pictureType(99), FilterIFrames},
	}
	for _, c := range cases {
		if got := pictureTypeToFilter(c.in); got != c.want {
			t.Errorf("pictureTypeToFilter(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFilterIAndPIncludesBothBits(t *testing.T) {
	if FilterIAndP&FilterIFrames == 0 {
		t.Fatal("FilterIAndP should include I frames")
	}
	if FilterIAndP&FilterPFrames == 0 {
		t.Fatal("FilterIAndP should include P frames")
	}
	if FilterIAndP&FilterBFrames != 0 {
		t.Fatal("FilterIAndP should not include B frames")
	}
}
