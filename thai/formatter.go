package thai

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var digitWords = [10]string{"ศูนย์", "หนึ่ง", "สอง", "สาม", "สี่", "ห้า", "หก", "เจ็ด", "แปด", "เก้า"}

var placeWords = [6]string{"", "สิบ", "ร้อย", "พัน", "หมื่น", "แสน"}

var shortMonths = [12]string{"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.", "ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค."}

var longMonths = [12]string{"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน", "กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม"}

// BuddhistEraOffset converts a Gregorian year to the Thai solar year.
const BuddhistEraOffset = 543

// NumberWords spells n in Thai.
func NumberWords(n int64) string {
	switch {
	case n == 0:
		return digitWords[0]
	case n < 0:
		if n == math.MinInt64 {
			// -(MinInt64) overflows; spell it through the unsigned value.
			return "ลบ" + spell(uint64(math.MaxInt64)+1, false)
		}
		return "ลบ" + spell(uint64(-n), false)
	}
	return spell(uint64(n), false)
}

// spell writes n by groups of six digits joined with ล้าน. higher reports
// whether a more significant group was non-zero, which turns a trailing
// one into เอ็ด.
func spell(n uint64, higher bool) string {
	if n >= 1_000_000 {
		head := spell(n/1_000_000, higher)
		return head + "ล้าน" + spell(n%1_000_000, true)
	}
	var b strings.Builder
	digits := strconv.FormatUint(n, 10)
	for i, c := range digits {
		d := int(c - '0')
		place := len(digits) - 1 - i
		if d == 0 {
			continue
		}
		switch {
		case place == 1 && d == 1:
		case place == 1 && d == 2:
			b.WriteString("ยี่")
		case place == 0 && d == 1 && (higher || n >= 10):
			b.WriteString("เอ็ด")
		default:
			b.WriteString(digitWords[d])
		}
		b.WriteString(placeWords[place])
	}
	return b.String()
}

// BahtWords spells an amount of money in baht and satang. A zero amount
// is "-".
func BahtWords(amount float64) string {
	if amount < 0 {
		return "ลบ" + BahtWords(-amount)
	}
	total := int64(math.Round(amount * 100))
	baht, satang := total/100, total%100
	switch {
	case baht == 0 && satang == 0:
		return "-"
	case satang == 0:
		return NumberWords(baht) + "บาทถ้วน"
	case baht == 0:
		return NumberWords(satang) + "สตางค์"
	}
	return NumberWords(baht) + "บาท" + NumberWords(satang) + "สตางค์"
}

// DateFormat selects a FormatDate layout.
type DateFormat int

const (
	// DateShort is "22 ม.ค. 68".
	DateShort DateFormat = iota
	// DateLong is "22 มกราคม 2568".
	DateLong
	// DateYear is "ปี 2568".
	DateYear
)

// FormatDate renders t in the Buddhist calendar.
func FormatDate(t time.Time, f DateFormat) string {
	year := t.Year() + BuddhistEraOffset
	month := int(t.Month()) - 1
	switch f {
	case DateLong:
		return fmt.Sprintf("%d %s %d", t.Day(), longMonths[month], year)
	case DateYear:
		return fmt.Sprintf("ปี %d", year)
	}
	return fmt.Sprintf("%d %s %02d", t.Day(), shortMonths[month], year%100)
}

// FormatFloat renders v with a "#,###.##" style pattern: the number of
// '#' or '0' after the '.' sets the precision and a ',' before it turns on
// thousands separators. An empty pattern means "#,###.##".
func FormatFloat(v float64, pattern string) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if pattern == "" {
		pattern = "#,###.##"
	}
	intPattern, fracPattern, _ := strings.Cut(pattern, ".")
	precision := strings.Count(fracPattern, "#") + strings.Count(fracPattern, "0")
	grouped := strings.Contains(intPattern, ",")

	s := strconv.FormatFloat(math.Abs(v), 'f', precision, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")
	if grouped {
		intPart = groupThousands(intPart)
	}
	out := intPart
	if precision > 0 {
		out += "." + fracPart
	}
	if v < 0 && strings.Trim(s, "0.") != "" {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
