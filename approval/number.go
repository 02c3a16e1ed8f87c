/*
number.go - Work plan control numbers

FORMAT:
  "P Trab Nr 00001/2025": a per-year sequence, zero-padded to 5 digits.

  Uploaded files usually carry their number in the file name, written in
  many hand-made variants. ExtractNumber recognizes them in order of
  specificity and normalizes the result:

    "P Trab Nr 1/2024.pdf"          → P Trab Nr 00001/2024
    "PTrab 12/2024.pdf"             → P Trab Nr 00012/2024
    "P_Trab_00003_2024.pdf"         → P Trab Nr 00003/2024
    "OP SENTINELA 7 2024.pdf"       → P Trab Nr 00007/2024   (last two numbers)
    "plano 00042.pdf"               → P Trab Nr 00042/<current year>
*/
package approval

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const numberPrefix = "P Trab Nr "

// FormatNumber renders a control number.
func FormatNumber(seq, year int) string {
	return fmt.Sprintf(numberPrefix+"%05d/%d", seq, year)
}

// ShortNumber strips the "P Trab Nr " prefix: "00001/2025".
func ShortNumber(number string) string {
	return strings.TrimPrefix(number, numberPrefix)
}

var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)P\s*Trab\s*Nr?\s*(\d+/\d+)`),
	regexp.MustCompile(`(?i)PTrab\s*(\d+/\d+)`),
	regexp.MustCompile(`(?i)P_Trab_(\d+_\d+)`),
	regexp.MustCompile(`(?i)P_Trab.*?(\d+[/_]\d+)`),
	regexp.MustCompile(`(\d{5}/\d{4})`),
	regexp.MustCompile(`(\d+/\d{4})`),
}

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	fiveDigitsPattern = regexp.MustCompile(`\d{5}`)
)

// ExtractNumber finds a control number in a file name. now supplies the
// year when the name only carries a bare 5-digit sequence.
func ExtractNumber(fileName string, now time.Time) (string, bool) {
	for _, re := range numberPatterns {
		m := re.FindStringSubmatch(fileName)
		if m == nil {
			continue
		}
		seq, year, ok := strings.Cut(strings.ReplaceAll(m[1], "_", "/"), "/")
		if !ok {
			return numberPrefix + m[1], true
		}
		return numberPrefix + padSeq(seq) + "/" + year, true
	}

	if nums := digitsPattern.FindAllString(fileName, -1); len(nums) >= 2 {
		seq, year := nums[len(nums)-2], nums[len(nums)-1]
		if len(year) == 4 {
			return numberPrefix + padSeq(seq) + "/" + year, true
		}
	}

	if m := fiveDigitsPattern.FindString(fileName); m != "" {
		return fmt.Sprintf("%s%s/%d", numberPrefix, m, now.Year()), true
	}
	return "", false
}

func padSeq(seq string) string {
	if len(seq) >= 5 {
		return seq
	}
	return strings.Repeat("0", 5-len(seq)) + seq
}
