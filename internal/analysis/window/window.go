// Package window группирует упорядоченные события в окна по индексу снимка.
package window

import "iter"

// Width ширина окна агрегации: max(1, n/divisor), деление целочисленное
func Width(n, divisor int) int {
	if divisor <= 0 {
		return 1
	}
	return max(1, n/divisor)
}

// Step шаг прореживания, при котором из n отсчетов остается не больше limit
func Step(n, limit int) int {
	if limit <= 0 || n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

// Span окно: позиции первого и последнего события и границы в исходном срезе
type Span struct {
	Start int // позиция первого события
	End   int // позиция последнего события
	Lo    int // индекс первого события в срезе
	Hi    int // индекс за последним событием
}

// Spans перебирает окна. Окно открывается первым еще не попавшим событием
// и забирает все следующие события с позицией не больше Start+width.
// Позиции должны быть неубывающими.
func Spans[T any](items []T, pos func(T) int, width int) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		i := 0
		for i < len(items) {
			start := pos(items[i])
			span := Span{Start: start, End: start, Lo: i}
			for i < len(items) && pos(items[i]) <= start+width {
				span.End = pos(items[i])
				i++
			}
			span.Hi = i
			if !yield(span) {
				return
			}
		}
	}
}

// Window результат свертки одного окна
type Window[A any] struct {
	Span
	Value A
}

// Aggregate сворачивает каждое окно функцией fold, начиная с нулевого значения A
func Aggregate[T, A any](items []T, pos func(T) int, width int, fold func(A, T) A) []Window[A] {
	var out []Window[A]
	for span := range Spans(items, pos, width) {
		var acc A
		for _, item := range items[span.Lo:span.Hi] {
			acc = fold(acc, item)
		}
		out = append(out, Window[A]{Span: span, Value: acc})
	}
	return out
}
