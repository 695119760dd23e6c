package window

import "testing"

func TestWidth(t *testing.T) {
	cases := []struct{ n, div, want int }{
		{0, 200, 1},
		{199, 200, 1},
		{400, 200, 2},
		{4801, 200, 24},
		{10, 0, 1},
	}
	for _, c := range cases {
		if got := Width(c.n, c.div); got != c.want {
			t.Errorf("Width(%d, %d) = %d, want %d", c.n, c.div, got, c.want)
		}
	}
}

func TestStepBoundsSamples(t *testing.T) {
	for _, n := range []int{1, 239, 240, 241, 479, 480, 4800, 4801} {
		step := Step(n, 240)
		samples := (n + step - 1) / step
		if step < 1 || samples > 240 {
			t.Errorf("n=%d: step %d gives %d samples", n, step, samples)
		}
	}
}

func TestAggregate(t *testing.T) {
	positions := []int{3, 4, 5, 6, 10, 11, 30}
	sum := func(acc int, p int) int { return acc + p }
	got := Aggregate(positions, func(p int) int { return p }, 2, sum)

	want := []Window[int]{
		{Span: Span{Start: 3, End: 5, Lo: 0, Hi: 3}, Value: 12},
		{Span: Span{Start: 6, End: 6, Lo: 3, Hi: 4}, Value: 6},
		{Span: Span{Start: 10, End: 11, Lo: 4, Hi: 6}, Value: 21},
		{Span: Span{Start: 30, End: 30, Lo: 6, Hi: 7}, Value: 30},
	}
	if len(got) != len(want) {
		t.Fatalf("windows = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSpansStopsEarly(t *testing.T) {
	count := 0
	for range Spans([]int{1, 10, 20}, func(p int) int { return p }, 1) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate([]int(nil), func(p int) int { return p }, 5, func(a, p int) int { return a + p }); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
