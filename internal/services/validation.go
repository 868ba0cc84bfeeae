package services

import (
	"errors"
	"reflect"
	"strings"

	"carwash-backend/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// DefaultPhoneRegion is used to parse numbers written without a country code.
const DefaultPhoneRegion = "NG"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of req and converts failures into a
// validation error keyed by JSON field path.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request: %v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[trimNamespace(fe.Namespace())] = fe.Tag()
	}
	return apperr.Validation("invalid request").With("fields", fields)
}

// trimNamespace drops the root struct name: CreateJobRequest.lines[0].washer_name -> lines[0].washer_name
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// normalizePhone returns the E.164 form of raw, or "" for an empty input.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return "", apperr.Validation("invalid phone number %q", raw).With("phone", raw)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// normalizePlate upper-cases a plate and strips separators so that
// "lag-123 ab" and "LAG123AB" compare equal.
func normalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r == ' ' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// foldKey is the case-insensitive lookup key for washer and item names.
func foldKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// distinctNames trims names and drops case-insensitive duplicates, keeping
// the first spelling and order of appearance.
func distinctNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		k := strings.ToLower(n)
		if n == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}

// isCents reports whether d has at most two decimal places.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
