package calendar

import (
	"testing"
	"time"
)

func TestMICForSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"600000", "xshg"},
		{"000001", "xshe"},
		{"300750", "xshe"},
		{"830799", "xnys"},
		{"AAPL", "xnys"},
	}
	for _, tt := range tests {
		if got := MICForSymbol(tt.symbol, "xnys"); got != tt.want {
			t.Errorf("MICForSymbol(%q) = %s, want %s", tt.symbol, got, tt.want)
		}
	}
}

func TestWeekdayFallback(t *testing.T) {
	tc := &TradingCalendar{location: time.UTC}
	if !tc.Fallback() {
		t.Fatal("expected fallback")
	}
	if !tc.IsTradingDay(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("friday is not a trading day")
	}
	if tc.IsTradingDay(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("saturday is a trading day")
	}
}

func TestExchangeCalendar(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skip("нет базы часовых поясов")
	}
	tc := New("XSHG", loc)
	if tc.Fallback() {
		t.Skip("календарь xshg недоступен")
	}
	if tc.IsTradingDay(time.Date(2024, 3, 16, 12, 0, 0, 0, loc)) {
		t.Error("saturday is a trading day")
	}
	if !tc.IsTradingDay(time.Date(2024, 3, 15, 12, 0, 0, 0, loc)) {
		t.Error("2024-03-15 is not a trading day")
	}
}
