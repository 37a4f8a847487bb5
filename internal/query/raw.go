package query

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/johndauphine/go-dm/internal/driver"
)

// defaultDateFormat matches the session format set by connection.SetDateFormat.
const defaultDateFormat = "YYYY-MM-DD HH24:MI:SS"

// ToRawSQL renders the statement with bindings substituted as escaped
// literals. The result is for logging and debugging; run queries with Get.
func (b *Builder) ToRawSQL() (string, error) {
	sql, err := b.compile()
	if err != nil {
		return "", err
	}

	layout := GoLayout(b.dateFormat)
	bindings := b.Bindings()

	var sb strings.Builder
	i := 0
	inString := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inString = !inString
			sb.WriteRune(r)
		case r == '?' && !inString && i < len(bindings):
			sb.WriteString(literal(b.dialect, bindings[i], layout))
			i++
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), nil
}

func literal(d driver.Dialect, v any, layout string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.QuoteString(val)
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(val)) + "'"
	case bool:
		if d.DBType() == "postgres" {
			return strings.ToUpper(strconv.FormatBool(val))
		}
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return "NULL"
		}
		return val.String()
	case time.Time:
		return d.QuoteString(val.Format(layout))
	case fmt.Stringer:
		return d.QuoteString(val.String())
	default:
		return d.QuoteString(fmt.Sprint(val))
	}
}

// dateTokens maps Dameng/Oracle format elements to Go layout elements,
// longest first so HH24 wins over HH.
var dateTokens = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"HH24", "15"},
	{"HH12", "03"},
	{"FF6", "000000"},
	{"FF3", "000"},
	{"FF", "000000"},
	{"MON", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "03"},
	{"MI", "04"},
	{"SS", "05"},
	{"AM", "PM"},
	{"PM", "PM"},
}

// GoLayout converts a Dameng date format such as YYYY-MM-DD HH24:MI:SS
// into a Go time layout. An empty format uses the session default.
func GoLayout(format string) string {
	if format == "" {
		format = defaultDateFormat
	}
	var sb strings.Builder
	upper := strings.ToUpper(format)
	for i := 0; i < len(format); {
		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(upper[i:], t.token) {
				sb.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(format[i])
			i++
		}
	}
	return sb.String()
}
