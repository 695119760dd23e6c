package normalize

import (
	"fmt"
	"strings"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Ключи канонических колонок
const (
	keyMarketCode = "market_code"
	keySymbol     = "symbol"
	keyTime       = "time"
	keyLastPrice  = "last_price"
	keyTradeCount = "trade_count"
	keyTurnover   = "turnover"
	keyVolume     = "volume"
	keyDirection  = "direction"
)

var baseKeys = []string{
	keyMarketCode, keySymbol, keyTime, keyLastPrice,
	keyTradeCount, keyTurnover, keyVolume, keyDirection,
}

// ExpectedColumns число колонок канонической схемы
var ExpectedColumns = len(baseKeys) + 4*models.BookDepth

// Названия колонок в выгрузках биржи
var headerAliases = map[string]string{
	"市场代码": keyMarketCode,
	"证券代码": keySymbol,
	"时间":   keyTime,
	"最新价":  keyLastPrice,
	"成交笔数": keyTradeCount,
	"成交额":  keyTurnover,
	"成交量":  keyVolume,
	"方向":   keyDirection,
}

func init() {
	levels := []string{"一", "二", "三", "四", "五"}
	for i, num := range levels[:models.BookDepth] {
		headerAliases["买"+num+"价"] = levelKey("bid", "price", i)
		headerAliases["买"+num+"量"] = levelKey("bid", "size", i)
		headerAliases["卖"+num+"价"] = levelKey("ask", "price", i)
		headerAliases["卖"+num+"量"] = levelKey("ask", "size", i)
	}
	for _, key := range canonicalOrder(config.LayoutSideMajor) {
		headerAliases[key] = key
	}
}

func levelKey(side, kind string, level int) string {
	return fmt.Sprintf("%s_%s_%d", side, kind, level+1)
}

// canonicalOrder порядок колонок при позиционном сопоставлении
func canonicalOrder(layout string) []string {
	keys := append([]string(nil), baseKeys...)
	add := func(side, kind string) {
		for i := 0; i < models.BookDepth; i++ {
			keys = append(keys, levelKey(side, kind, i))
		}
	}
	if layout == config.LayoutFieldMajor {
		add("bid", "price")
		add("ask", "price")
		add("bid", "size")
		add("ask", "size")
	} else {
		add("bid", "price")
		add("bid", "size")
		add("ask", "price")
		add("ask", "size")
	}
	return keys
}

// Schema индексы колонок входного файла для каждого канонического поля
type Schema struct {
	MarketCode int
	Symbol     int
	Time       int
	LastPrice  int
	TradeCount int
	Turnover   int
	Volume     int
	Direction  int
	BidPrice   [models.BookDepth]int
	BidSize    [models.BookDepth]int
	AskPrice   [models.BookDepth]int
	AskSize    [models.BookDepth]int
	ByName     bool // сопоставлено по заголовку, а не по позиции
}

// ResolveSchema сопоставляет заголовок с канонической схемой.
// Если все колонки узнаны по названию, порядок в файле не важен;
// иначе колонки сопоставляются по позиции в заданной раскладке.
func ResolveSchema(header []string, layout string) (Schema, error) {
	if len(header) != ExpectedColumns {
		return Schema{}, fmt.Errorf("%w: ожидается %d колонок, получено %d",
			models.ErrSchemaMismatch, ExpectedColumns, len(header))
	}

	index := make(map[string]int, ExpectedColumns)
	for i, name := range header {
		key, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			key, ok = headerAliases[strings.TrimSpace(name)]
		}
		if !ok {
			continue
		}
		if _, dup := index[key]; dup {
			return Schema{}, fmt.Errorf("%w: колонка %q повторяется", models.ErrSchemaMismatch, name)
		}
		index[key] = i
	}

	byName := len(index) == ExpectedColumns
	if !byName {
		index = make(map[string]int, ExpectedColumns)
		for i, key := range canonicalOrder(layout) {
			index[key] = i
		}
	}

	s := Schema{
		MarketCode: index[keyMarketCode],
		Symbol:     index[keySymbol],
		Time:       index[keyTime],
		LastPrice:  index[keyLastPrice],
		TradeCount: index[keyTradeCount],
		Turnover:   index[keyTurnover],
		Volume:     index[keyVolume],
		Direction:  index[keyDirection],
		ByName:     byName,
	}
	for i := 0; i < models.BookDepth; i++ {
		s.BidPrice[i] = index[levelKey("bid", "price", i)]
		s.BidSize[i] = index[levelKey("bid", "size", i)]
		s.AskPrice[i] = index[levelKey("ask", "price", i)]
		s.AskSize[i] = index[levelKey("ask", "size", i)]
	}
	return s, nil
}
