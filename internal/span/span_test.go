package span

import "testing"

func TestFromRatioThresholds(t *testing.T) {
	cases := []struct {
		ratio float64
		want  int
	}{
		{1.6, 4},
		{1.5, 4},
		{1.4, 3},
		{1.35, 3},
		{1.2, 2},
		{1.0, 2},
		{0.99, 1},
		{0.5, 1},
	}
	for _, tc := range cases {
		if got := FromRatio(tc.ratio); got != tc.want {
			t.Fatalf("FromRatio(%v) = %d, want %d", tc.ratio, got, tc.want)
		}
	}
}

func TestRatioUnknownDimensionsAreSquare(t *testing.T) {
	if got := Ratio(0, 100); got != 1.0 {
		t.Fatalf("Ratio(0, 100) = %v, want 1.0", got)
	}
	if got := Ratio(1920, 0); got != 1.0 {
		t.Fatalf("Ratio(1920, 0) = %v, want 1.0", got)
	}
	if got := Ratio(200, 100); got != 2.0 {
		t.Fatalf("Ratio(200, 100) = %v, want 2.0", got)
	}
}

func TestPackKeepsExactRows(t *testing.T) {
	got := Pack([]int{2, 2, 4, 1, 1, 2})
	want := []int{2, 2, 4, 1, 1, 2}
	assertSpans(t, got, want)
}

func TestPackTruncatesOverflowingItem(t *testing.T) {
	// 2 + 3 overflows: the second item is cut down to fill the row exactly.
	got := Pack([]int{2, 3, 4})
	want := []int{2, 2, 4}
	assertSpans(t, got, want)
}

func TestPackZeroRemainderRestartsRowAtOne(t *testing.T) {
	// 4 + 4 would truncate the second item to zero width; it is emitted at
	// span 1 and the accumulator restarts at 1.
	got := Pack([]int{4, 4, 3})
	want := []int{4, 1, 3}
	assertSpans(t, got, want)
}

func TestPackNeverOverflowsRow(t *testing.T) {
	inputs := [][]int{
		{1, 1, 1, 1, 1},
		{4, 4, 4, 4},
		{3, 3, 3, 3},
		{2, 3, 2, 3, 2},
		{1, 4, 2, 3, 1, 1},
	}
	for _, in := range inputs {
		out := Pack(in)
		if len(out) != len(in) {
			t.Fatalf("Pack(%v) changed length: %v", in, out)
		}
		sum := 0
		for _, s := range out {
			if s < 1 || s > 4 {
				t.Fatalf("Pack(%v) produced span %d", in, s)
			}
			sum += s
			if sum > 4 {
				sum = s // the overflowing item started a new row
			}
			if sum > 4 {
				t.Fatalf("Pack(%v) = %v exceeds row width", in, out)
			}
			if sum == 4 {
				sum = 0
			}
		}
	}
}

func TestRows(t *testing.T) {
	if got := Rows([]int{4, 4, 4}); got != 3 {
		t.Fatalf("Rows = %d, want 3", got)
	}
	if got := Rows([]int{2, 2, 1}); got != 2 {
		t.Fatalf("Rows = %d, want 2", got)
	}
	if got := Rows(nil); got != 0 {
		t.Fatalf("Rows(nil) = %d, want 0", got)
	}
}

func TestEstimateAllSingle(t *testing.T) {
	got := Estimate(10, 8)
	if got != (RowSizes{Single: 8}) {
		t.Fatalf("Estimate(10, 8) = %+v", got)
	}
}

func TestEstimateDoubleBand(t *testing.T) {
	// 12 items in 8 rows: 6 all-double rows leave 2 rows to absorb as singles.
	got := Estimate(8, 12)
	want := RowSizes{Single: 4, Double: 4}
	if got != want {
		t.Fatalf("Estimate(8, 12) = %+v, want %+v", got, want)
	}
	if got.Single*1+got.Double*2 != 12 {
		t.Fatalf("Estimate(8, 12) does not reconstruct item count: %+v", got)
	}
}

func TestEstimateQuadrupleBand(t *testing.T) {
	got := Estimate(10, 32)
	// 32/4 = 8 quadruple rows, difference 2: 6 quadruple, 4 double, rest single.
	want := RowSizes{Single: 0, Double: 4, Quadruple: 6}
	if got != want {
		t.Fatalf("Estimate(10, 32) = %+v, want %+v", got, want)
	}
	if got.Single*1+got.Double*2+got.Quadruple*4 != 32 {
		t.Fatalf("Estimate(10, 32) does not reconstruct item count: %+v", got)
	}
}

func assertSpans(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
