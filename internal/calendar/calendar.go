// Package calendar определяет торговые дни биржи по коду MIC.
package calendar

import (
	"strings"
	"time"

	scal "github.com/scmhub/calendar"
	"github.com/skalibog/bookmap/pkg/logger"
	"go.uber.org/zap"
)

// TradingCalendar календарь торговых дней.
// Если календарь биржи недоступен, торговыми считаются будни.
type TradingCalendar struct {
	MIC      string
	calendar *scal.Calendar
	location *time.Location
}

// New загружает календарь биржи, loc используется только без календаря
func New(mic string, loc *time.Location) *TradingCalendar {
	mic = strings.ToLower(mic)
	tc := &TradingCalendar{MIC: mic, location: loc}
	if mic != "" {
		tc.calendar = scal.GetCalendar(mic)
	}
	if tc.calendar == nil {
		logger.Warn("Календарь биржи недоступен, торговыми считаются будни", zap.String("mic", mic))
		return tc
	}
	tc.location = tc.calendar.Loc
	return tc
}

// MICForSymbol код биржи по шестизначному коду акции Китая, иначе fallback
func MICForSymbol(symbol, fallback string) string {
	if len(symbol) != 6 {
		return fallback
	}
	switch symbol[0] {
	case '5', '6', '9':
		return "xshg"
	case '0', '2', '3':
		return "xshe"
	}
	return fallback
}

// IsTradingDay true для рабочего дня биржи
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.location != nil {
		date = date.In(tc.location)
	}
	if tc.calendar == nil {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return tc.calendar.IsBusinessDay(date)
}

// Fallback true, если календарь биржи не загружен
func (tc *TradingCalendar) Fallback() bool {
	return tc.calendar == nil
}
