package promo

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bookshop/internal/model"

	"github.com/shopspring/decimal"
)

// Column order of promo import files. A header row naming these columns is optional.
var csvColumns = []string{
	"code",
	"discount_percent",
	"discount_amount",
	"max_uses",
	"min_order_amount",
	"valid_until",
	"is_active",
}

const cancelCheckEvery = 10_000

// readGzipCSV parses a gzipped promo CSV stream into a set.
func readGzipCSV(ctx context.Context, r io.Reader) (*mapSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	return readCSV(ctx, gzipReader)
}

func readCSV(ctx context.Context, r io.Reader) (*mapSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	set := newMapSet(1024)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if line%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), csvColumns[0]) {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		p, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		set.Add(p)
	}

	return set, nil
}

func parseRecord(record []string) (model.PromoCode, error) {
	if len(record) > len(csvColumns) {
		return model.PromoCode{}, fmt.Errorf("expected at most %d columns, got %d", len(csvColumns), len(record))
	}

	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	p := model.PromoCode{
		Code:     model.NormalizePromoCode(field(0)),
		IsActive: true,
	}
	if p.Code == "" {
		return p, errors.New("code is required")
	}

	var err error
	if p.DiscountPercent, err = optionalDecimal(field(1)); err != nil {
		return p, fmt.Errorf("discount_percent: %w", err)
	}
	if p.DiscountAmount, err = optionalDecimal(field(2)); err != nil {
		return p, fmt.Errorf("discount_amount: %w", err)
	}
	if (p.DiscountPercent == nil) == (p.DiscountAmount == nil) {
		return p, fmt.Errorf("code %s: exactly one of discount_percent and discount_amount must be set", p.Code)
	}
	if p.DiscountPercent != nil && (!p.DiscountPercent.IsPositive() || p.DiscountPercent.GreaterThan(hundred)) {
		return p, fmt.Errorf("code %s: discount_percent must be in (0, 100]", p.Code)
	}
	if p.DiscountAmount != nil && !p.DiscountAmount.IsPositive() {
		return p, fmt.Errorf("code %s: discount_amount must be positive", p.Code)
	}

	if v := field(3); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("code %s: invalid max_uses %q", p.Code, v)
		}
		p.MaxUses = &n
	}

	if p.MinOrderAmount, err = optionalDecimal(field(4)); err != nil {
		return p, fmt.Errorf("min_order_amount: %w", err)
	}

	if v := field(5); v != "" {
		t, err := parseValidUntil(v)
		if err != nil {
			return p, fmt.Errorf("code %s: invalid valid_until %q", p.Code, v)
		}
		p.ValidUntil = &t
	}

	if v := field(6); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("code %s: invalid is_active %q", p.Code, v)
		}
		p.IsActive = active
	}

	return p, nil
}

var hundred = decimal.NewFromInt(100)

func optionalDecimal(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return &d, nil
}

// parseValidUntil accepts RFC 3339 timestamps or plain dates. A plain date keeps
// the code valid through the end of that day (UTC).
func parseValidUntil(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	return d.AddDate(0, 0, 1), nil
}
