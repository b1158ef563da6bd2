// Package blocking computes the candidate-generation keys of §4.D: the
// default composite blocking key, plus the secondary single-field modes
// alternative entry points may use.
package blocking

import (
	"strings"

	"github.com/ignite/dedupe/internal/normalize"
	"github.com/ignite/dedupe/internal/record"
)

const prefixLen = 3
const zipLen = 5
const phoneSuffixLen = 4
const namePrefixLen = 6

// CompositeKey computes the default blocking key for a Record:
// "{company_prefix3}_{zip_prefix5}_{phone_suffix4}", lower-cased. All three
// components may be empty; the key is still constructed.
func CompositeKey(r record.Record) string {
	company := normalize.CompanyName(r.Get(record.FieldCompanyName))
	zip := strings.TrimSpace(r.Get(record.FieldZipCode))
	phone := normalize.Phone(r.Get(record.FieldPhoneNumber))

	c := firstN(company, prefixLen)
	z := firstN(zip, zipLen)
	p := lastN(phone, phoneSuffixLen)

	return strings.ToLower(c + "_" + z + "_" + p)
}

// ExactPhoneKey is a secondary blocking mode: the full normalized phone
// number used verbatim as the key.
func ExactPhoneKey(r record.Record) string {
	return normalize.Phone(r.Get(record.FieldPhoneNumber))
}

// NameKey is a secondary blocking mode: prefix-6 of the normalized company
// name.
func NameKey(r record.Record) string {
	return firstN(normalize.CompanyName(r.Get(record.FieldCompanyName)), namePrefixLen)
}

// AddrKey is a secondary blocking mode: prefix-6 of the normalized address.
func AddrKey(r record.Record) string {
	return firstN(normalize.Address(r.Get(record.FieldAddressLine1)), namePrefixLen)
}

func firstN(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func lastN(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
