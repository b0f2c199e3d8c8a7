package xmlstore

import (
	"encoding/xml"
	"fmt"
)

// Category identifies which aggregate document a file belongs to.
type Category string

const (
	External Category = "external"
	Internal Category = "internal"
	Client   Category = "client"
)

// Categories lists every known category in match-precedence order: when a
// path could belong to more than one, the first match in this slice wins.
// Classification must iterate this slice rather than re-derive the order.
var Categories = []Category{External, Internal, Client}

// ParseCategory converts a raw string into a known Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Entry is a single extracted document inside an aggregate. Filename is the
// dedup key within a category; Meta carries metadata as extra attributes in
// sorted key order; Text is the raw extracted document text.
type Entry struct {
	XMLName  xml.Name   `xml:"entry"`
	Filename string     `xml:"filename,attr"`
	Meta     []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
}

type document struct {
	XMLName xml.Name `xml:"Root"`
	Entries []Entry  `xml:"entry"`
}
