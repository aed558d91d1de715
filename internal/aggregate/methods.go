package aggregate

import (
	"math"
	"strings"

	"dropkit/internal/schema"
	"dropkit/internal/value"
)

// Method identifies a per-field aggregation strategy.
type Method string

const (
	MethodFirstNonNA     Method = "first_non_na"
	MethodBinaryAny      Method = "binary_any"
	MethodTokenFreqSlash Method = "token_freq_slash"
	MethodSum            Method = "sum"
	MethodMean           Method = "mean"
	MethodMeanSE         Method = "mean_se"
	// MethodExclude drops the field from aggregated output entirely.
	MethodExclude Method = "exclude"
)

// ParseMethod maps a configuration spelling to a Method.
func ParseMethod(raw string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodFirstNonNA:
		return MethodFirstNonNA, true
	case MethodBinaryAny:
		return MethodBinaryAny, true
	case MethodTokenFreqSlash:
		return MethodTokenFreqSlash, true
	case MethodSum:
		return MethodSum, true
	case MethodMean:
		return MethodMean, true
	case MethodMeanSE:
		return MethodMeanSE, true
	case MethodExclude:
		return MethodExclude, true
	}
	return "", false
}

// categoryNameHints mark fields holding slash-separated category lists;
// their aggregation ranks tokens by frequency instead of averaging.
var categoryNameHints = []string{"SUBSTRATE", "HABITAT", "BIOTA"}

// InferMethod picks a default strategy for a field. Priority: metadata
// fields keep their first value; category-convention names rank tokens;
// all-numeric 0/1 columns become binary-any; any numeric content averages;
// everything else keeps the first value.
func InferMethod(field string, values []string, tmpl *schema.Template) Method {
	if tmpl != nil && tmpl.IsMetadata(field) {
		return MethodFirstNonNA
	}

	upper := strings.ToUpper(field)
	for _, hint := range categoryNameHints {
		if strings.Contains(upper, hint) {
			return MethodTokenFreqSlash
		}
	}

	numericCount := 0
	binary := true
	anyNumeric := false
	for _, raw := range values {
		if value.IsNA(raw) {
			continue
		}
		n, ok := value.ParseNumber(raw)
		if !ok {
			binary = false
			continue
		}
		anyNumeric = true
		numericCount++
		if n != 0 && n != 1 {
			binary = false
		}
	}

	if anyNumeric && binary && numericCount > 0 {
		return MethodBinaryAny
	}
	if anyNumeric {
		return MethodMean
	}
	return MethodFirstNonNA
}

// FirstNonNA returns the first non-NA value in original order, else "".
func FirstNonNA(values []string) string {
	for _, raw := range values {
		if !value.IsNA(raw) {
			return strings.TrimSpace(raw)
		}
	}
	return ""
}

// BinaryAny reduces a 0/1 presence column: "1" when any non-NA value is 1,
// "0" when numeric values exist but none is 1, and "" when nothing numeric
// is present.
func BinaryAny(values []string) string {
	seen := false
	for _, raw := range values {
		n, ok := value.ParseNumber(raw)
		if !ok {
			continue
		}
		seen = true
		if n == 1 {
			return "1"
		}
	}
	if !seen {
		return ""
	}
	return "0"
}

// TokenFreqSlash splits every non-NA value on "/", counts tokens
// case-insensitively while keeping first-seen display casing, and rejoins
// them ordered by descending count with first-seen order breaking ties. The
// tie-break keeps output reproducible across runs.
func TokenFreqSlash(values []string) string {
	type entry struct {
		display string
		count   int
		seen    int
	}
	byKey := make(map[string]*entry)
	var order []*entry

	for _, raw := range values {
		if value.IsNA(raw) {
			continue
		}
		for _, tok := range strings.Split(raw, "/") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			key := strings.ToLower(tok)
			e, ok := byKey[key]
			if !ok {
				e = &entry{display: tok, seen: len(order)}
				byKey[key] = e
				order = append(order, e)
			}
			e.count++
		}
	}
	if len(order) == 0 {
		return ""
	}

	// Stable selection sort by (count desc, first-seen asc); the lists here
	// are tiny.
	sorted := append([]*entry(nil), order...)
	for i := 0; i < len(sorted); i++ {
		best := i
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].count > sorted[best].count ||
				(sorted[j].count == sorted[best].count && sorted[j].seen < sorted[best].seen) {
				best = j
			}
		}
		sorted[i], sorted[best] = sorted[best], sorted[i]
	}

	tokens := make([]string, len(sorted))
	for i, e := range sorted {
		tokens[i] = e.display
	}
	return strings.Join(tokens, "/")
}

// Sum adds all non-NA numeric values; "" when none are numeric.
func Sum(values []string) string {
	sum := 0.0
	seen := false
	for _, raw := range values {
		if n, ok := value.ParseNumber(raw); ok {
			sum += n
			seen = true
		}
	}
	if !seen {
		return ""
	}
	return value.FormatNumber(sum)
}

// Mean averages all non-NA numeric values. A column where every present
// value is explicitly NA reports "NA"; a column with no values at all
// reports "". The distinction separates "recorded as not applicable" from
// "field absent".
func Mean(values []string) string {
	mean, _, n := meanAndSE(values)
	if n == 0 {
		if len(values) > 0 {
			return value.NA
		}
		return ""
	}
	return value.FormatNumber(mean)
}

// MeanSE returns the mean plus the sample standard error
// (stddev/sqrt(n), n-1 divisor). The standard error is "" with fewer than
// two numeric values.
func MeanSE(values []string) (mean, se string) {
	m, s, n := meanAndSE(values)
	if n == 0 {
		if len(values) > 0 {
			return value.NA, ""
		}
		return "", ""
	}
	mean = value.FormatNumber(m)
	if n < 2 {
		return mean, ""
	}
	return mean, value.FormatNumber(s)
}

func meanAndSE(values []string) (mean, se float64, n int) {
	sum := 0.0
	var nums []float64
	for _, raw := range values {
		if v, ok := value.ParseNumber(raw); ok {
			nums = append(nums, v)
			sum += v
		}
	}
	n = len(nums)
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0, n
	}
	variance := 0.0
	for _, v := range nums {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	se = math.Sqrt(variance) / math.Sqrt(float64(n))
	return mean, se, n
}
