package extraction

import (
	"SpendSnap-Backend/domain"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agext/levenshtein"
	"github.com/shopspring/decimal"
)

// ExtractorOptions are the tunables of the field extractor. Defaults follow
// config.yaml; tests construct their own.
type ExtractorOptions struct {
	// MerchantMatchThreshold is the minimum similarity for replacing the raw
	// merchant string with a canonical name.
	MerchantMatchThreshold float64
	// CoercionPenalty scales confidence when a value needed format coercion
	// during normalization (e.g. ambiguous date resolution).
	CoercionPenalty float64
	// DateHorizon bounds how far in the future a resolved date may land; a
	// two-digit year resolving beyond it is pushed back a century.
	DateHorizon time.Duration
	// KnownMerchants is the canonical merchant list used for fuzzy matching.
	KnownMerchants []string
	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		MerchantMatchThreshold: 0.85,
		CoercionPenalty:        0.8,
		DateHorizon:            365 * 24 * time.Hour,
		Now:                    time.Now,
	}
}

var (
	reAmountToken = regexp.MustCompile(`^-?\d{1,3}(,\d{3})*(\.\d{1,2})?$|^-?\d+(\.\d{1,2})?$`)
	reCurrency    = regexp.MustCompile(`(?i)^(rp|usd|eur|gbp|idr)\.?\s*|[$£€]\s*`)
	reQtyPrefix   = regexp.MustCompile(`^(\d+)\s*[xX]\s+`)
)

// Extract turns raw provider output into a normalized candidate record with
// per-field confidence. A field that fails normalization becomes a null
// value with confidence zero; it never aborts the rest of the extraction.
func Extract(out domain.ProviderOutput, opts ExtractorOptions) domain.CandidateRecord {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	record := domain.CandidateRecord{SchemaVersion: domain.FieldsSchemaVersion}

	guesses := indexGuesses(out)

	record.MerchantName = extractMerchant(guesses, opts)
	record.TransactionDate = extractDate(guesses, opts)
	record.TotalAmount = extractAmount(guesses, opts)
	record.PaymentMethod = extractPaymentMethod(guesses)
	record.LineItems = extractLineItems(out.RawText, out.ProviderConfidence)

	return record
}

// guess is a provider guess after alias resolution, with provider-level
// confidence substituted when the per-field score is absent.
type guess struct {
	value      string
	confidence float64
	present    bool
}

var fieldAliases = map[string]string{
	"merchant":         domain.FieldMerchantName,
	"merchant_name":    domain.FieldMerchantName,
	"vendor":           domain.FieldMerchantName,
	"date":             domain.FieldTransactionDate,
	"transaction_date": domain.FieldTransactionDate,
	"total":            domain.FieldTotalAmount,
	"total_amount":     domain.FieldTotalAmount,
	"amount":           domain.FieldTotalAmount,
	"payment":          domain.FieldPaymentMethod,
	"payment_method":   domain.FieldPaymentMethod,
}

func indexGuesses(out domain.ProviderOutput) map[string]guess {
	indexed := make(map[string]guess, len(out.Guesses))
	for _, g := range out.Guesses {
		canonical, ok := fieldAliases[strings.ToLower(strings.TrimSpace(g.Field))]
		if !ok {
			continue
		}
		conf := g.Confidence
		if conf == 0 {
			conf = out.ProviderConfidence
		}
		if existing, dup := indexed[canonical]; dup && existing.confidence >= conf {
			continue
		}
		indexed[canonical] = guess{value: strings.TrimSpace(g.Value), confidence: conf, present: true}
	}
	return indexed
}

func extractMerchant(guesses map[string]guess, opts ExtractorOptions) domain.FieldValue {
	g := guesses[domain.FieldMerchantName]
	if !g.present || g.value == "" {
		return domain.FieldValue{}
	}

	canonical, similarity := matchMerchant(g.value, opts.KnownMerchants)
	if similarity >= opts.MerchantMatchThreshold {
		conf := g.confidence
		if similarity > conf {
			conf = similarity
		}
		return domain.FieldValue{Value: &canonical, Confidence: clampConfidence(conf)}
	}

	// weak or no match: keep the raw OCR string untouched
	raw := g.value
	return domain.FieldValue{Value: &raw, Confidence: clampConfidence(g.confidence)}
}

// matchMerchant returns the best canonical candidate and its similarity.
func matchMerchant(raw string, known []string) (string, float64) {
	best := ""
	bestScore := 0.0
	needle := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range known {
		score := levenshtein.Similarity(needle, strings.ToLower(candidate), nil)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}

func extractDate(guesses map[string]guess, opts ExtractorOptions) domain.FieldValue {
	g := guesses[domain.FieldTransactionDate]
	if !g.present || g.value == "" {
		return domain.FieldValue{}
	}

	parsed, coerced, err := normalizeDate(g.value, opts.Now(), opts.DateHorizon)
	if err != nil {
		return domain.FieldValue{Value: nil, Confidence: 0}
	}

	iso := parsed.Format("2006-01-02")
	conf := g.confidence
	if coerced {
		conf *= opts.CoercionPenalty
	}
	return domain.FieldValue{Value: &iso, Confidence: clampConfidence(conf)}
}

func extractAmount(guesses map[string]guess, opts ExtractorOptions) domain.FieldValue {
	g := guesses[domain.FieldTotalAmount]
	if !g.present || g.value == "" {
		return domain.FieldValue{}
	}

	amount, coerced, err := normalizeAmount(g.value)
	if err != nil {
		return domain.FieldValue{Value: nil, Confidence: 0}
	}

	formatted := amount.StringFixed(2)
	conf := g.confidence
	if coerced {
		conf *= opts.CoercionPenalty
	}
	return domain.FieldValue{Value: &formatted, Confidence: clampConfidence(conf)}
}

func extractPaymentMethod(guesses map[string]guess) domain.FieldValue {
	g := guesses[domain.FieldPaymentMethod]
	if !g.present || g.value == "" {
		return domain.FieldValue{}
	}
	normalized := strings.ToLower(strings.TrimSpace(g.value))
	return domain.FieldValue{Value: &normalized, Confidence: clampConfidence(g.confidence)}
}

// normalizeAmount parses a currency string into a fixed-point decimal.
// coerced reports whether anything beyond whitespace had to be stripped.
func normalizeAmount(raw string) (decimal.Decimal, bool, error) {
	trimmed := strings.TrimSpace(raw)
	cleaned := reCurrency.ReplaceAllString(trimmed, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false, err
	}
	return amount, cleaned != trimmed, nil
}

// normalizeDate parses the common receipt date shapes into a timezone-naive
// date. Two-digit years resolve to the most recent date no further than
// horizon in the future. Day/month order falls back to day-first when both
// parts could be a month; that resolution counts as coercion.
func normalizeDate(raw string, now time.Time, horizon time.Duration) (time.Time, bool, error) {
	trimmed := strings.TrimSpace(raw)

	// unambiguous formats first
	for _, layout := range []string{"2006-01-02", "2006/01/02", "02 Jan 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, false, nil
		}
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) != 3 {
		return time.Time{}, false, domain.ErrValidation
	}
	a, errA := strconv.Atoi(parts[0])
	b, errB := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errA != nil || errB != nil || errY != nil {
		return time.Time{}, false, domain.ErrValidation
	}

	coerced := false
	twoDigitYear := false
	if y < 100 {
		y += 2000
		twoDigitYear = true
		coerced = true
	}

	var day, month int
	switch {
	case a > 12 && b <= 12:
		day, month = a, b // DD/MM
	case b > 12 && a <= 12:
		day, month = b, a // MM/DD
	case a <= 12 && b <= 12:
		// ambiguous: prefer day-first, the dominant receipt convention
		day, month = a, b
		coerced = true
	default:
		return time.Time{}, false, domain.ErrValidation
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false, domain.ErrValidation
	}

	t := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false, domain.ErrValidation
	}
	// a two-digit year resolves to the most recent date no further than
	// horizon in the future; beyond that it belongs to the previous century
	if twoDigitYear && t.After(now.Add(horizon)) {
		t = t.AddDate(-100, 0, 0)
	}
	return t, coerced, nil
}

// extractLineItems groups OCR text rows into line-item candidates. A row
// qualifies when it ends in a number-like token preceded by at least one
// label token; anything else is dropped rather than guessed.
func extractLineItems(rawText string, providerConfidence float64) []domain.LineItemCandidate {
	var items []domain.LineItemCandidate

	for _, line := range strings.Split(rawText, "\n") {
		item, ok := parseItemRow(line, providerConfidence)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func parseItemRow(line string, providerConfidence float64) (domain.LineItemCandidate, bool) {
	fieldsOf := strings.Fields(strings.TrimSpace(line))
	if len(fieldsOf) < 2 {
		return domain.LineItemCandidate{}, false
	}

	last := fieldsOf[len(fieldsOf)-1]
	last = reCurrency.ReplaceAllString(last, "")
	if !reAmountToken.MatchString(last) {
		return domain.LineItemCandidate{}, false
	}
	total, err := decimal.NewFromString(strings.ReplaceAll(last, ",", ""))
	if err != nil || total.IsNegative() {
		return domain.LineItemCandidate{}, false
	}

	label := strings.Join(fieldsOf[:len(fieldsOf)-1], " ")
	if !hasLetter(label) {
		return domain.LineItemCandidate{}, false
	}

	quantity := decimal.NewFromInt(1)
	confidence := providerConfidence
	if m := reQtyPrefix.FindStringSubmatch(label); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			quantity = decimal.NewFromInt(int64(q))
			label = strings.TrimSpace(reQtyPrefix.ReplaceAllString(label, ""))
			// quantity was inferred from layout, not read directly
			confidence *= 0.9
		}
	}

	unitPrice := total
	if !quantity.Equal(decimal.NewFromInt(1)) {
		unitPrice = total.DivRound(quantity, 2)
	}

	return domain.LineItemCandidate{
		Name:       label,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: total,
		Confidence: clampConfidence(confidence),
	}, true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
