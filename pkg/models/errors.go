package models

import "errors"

var (
	// ErrSchemaMismatch входные колонки не отображаются на каноническую схему
	ErrSchemaMismatch = errors.New("несовпадение схемы входных данных")
	// ErrParseFailure значение не удалось преобразовать, заменяется пропуском
	ErrParseFailure = errors.New("ошибка преобразования значения")
	// ErrEmptySession после фильтрации по времени сессии не осталось строк
	ErrEmptySession = errors.New("пустая сессия")
	// ErrDegenerateRange нулевой диапазон, зависящий слой пропускается
	ErrDegenerateRange = errors.New("вырожденный диапазон")
	// ErrNoPrices в сессии нет ни одной валидной последней цены
	ErrNoPrices = errors.New("нет валидных цен")
)
