// Package cachefmt is a reference implementation of the read-only
// Repository Cache: a gzip-compressed, minimal XML property list
// sitting beside a repository's directory, reconstructed into a
// Repository without re-scanning the filesystem when its mtime shows
// it is still current.
package cachefmt

import (
	"encoding/xml"

	"github.com/pkg/errors"
)

// plistValue is a minimal subset of the Apple XML property list
// grammar: strings, integers, booleans, arrays, and dictionaries of the
// same, which is all the cached bundle records in this package need.
// encoding/xml has no native notion of a plist's typed elements, so
// plistValue implements its own (Un)MarshalXML to bridge the two.
type plistValue struct {
	kind plistKind
	str  string
	i    int64
	b    bool
	arr  []plistValue
	dict map[string]plistValue
	// order preserves dict key insertion order, so a dict's keys are
	// encoded in the order they were set or decoded. Dicts built from Go
	// maps (personalities, in encodeBundle) take the maps' iteration
	// order, which is not stable across saves.
	order []string
}

type plistKind int

const (
	kindString plistKind = iota
	kindInteger
	kindBool
	kindArray
	kindDict
)

func plistString(s string) plistValue { return plistValue{kind: kindString, str: s} }
func plistInteger(i int64) plistValue  { return plistValue{kind: kindInteger, i: i} }
func plistBool(b bool) plistValue      { return plistValue{kind: kindBool, b: b} }

func plistArray(vs ...plistValue) plistValue {
	return plistValue{kind: kindArray, arr: vs}
}

func newPlistDict() plistValue {
	return plistValue{kind: kindDict, dict: map[string]plistValue{}}
}

func (v *plistValue) set(key string, val plistValue) {
	if _, exists := v.dict[key]; !exists {
		v.order = append(v.order, key)
	}
	v.dict[key] = val
}

func (v plistValue) get(key string) (plistValue, bool) {
	val, ok := v.dict[key]
	return val, ok
}

func (v plistValue) stringOr(key, def string) string {
	if val, ok := v.get(key); ok && val.kind == kindString {
		return val.str
	}
	return def
}

func (v plistValue) boolOr(key string, def bool) bool {
	if val, ok := v.get(key); ok && val.kind == kindBool {
		return val.b
	}
	return def
}

func (v plistValue) arrayOr(key string) []plistValue {
	if val, ok := v.get(key); ok && val.kind == kindArray {
		return val.arr
	}
	return nil
}

// MarshalXML renders v in the plist element vocabulary this package
// understands: <string>, <integer>, <true/>, <false/>, <array>, <dict>.
func (v plistValue) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	switch v.kind {
	case kindString:
		return e.EncodeElement(v.str, xml.StartElement{Name: xml.Name{Local: "string"}})
	case kindInteger:
		return e.EncodeElement(v.i, xml.StartElement{Name: xml.Name{Local: "integer"}})
	case kindBool:
		tag := "false"
		if v.b {
			tag = "true"
		}
		return e.EncodeElement(struct{}{}, xml.StartElement{Name: xml.Name{Local: tag}})
	case kindArray:
		start := xml.StartElement{Name: xml.Name{Local: "array"}}
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		for _, item := range v.arr {
			if err := e.Encode(item); err != nil {
				return err
			}
		}
		return e.EncodeToken(start.End())
	case kindDict:
		start := xml.StartElement{Name: xml.Name{Local: "dict"}}
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		for _, key := range v.order {
			if err := e.EncodeElement(key, xml.StartElement{Name: xml.Name{Local: "key"}}); err != nil {
				return err
			}
			if err := e.Encode(v.dict[key]); err != nil {
				return err
			}
		}
		return e.EncodeToken(start.End())
	}
	return errors.Errorf("plist: unencodable value kind %d", v.kind)
}

// UnmarshalXML parses one plist value element (itself, not a wrapping
// <plist>) back into a plistValue.
func (v *plistValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "string":
		var s string
		if err := d.DecodeElement(&s, &start); err != nil {
			return err
		}
		*v = plistString(s)
	case "integer":
		var i int64
		if err := d.DecodeElement(&i, &start); err != nil {
			return err
		}
		*v = plistInteger(i)
	case "true", "false":
		if err := d.Skip(); err != nil {
			return err
		}
		*v = plistBool(start.Name.Local == "true")
	case "array":
		arr := plistValue{kind: kindArray}
		for {
			tok, err := d.Token()
			if err != nil {
				return err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				var item plistValue
				if err := item.UnmarshalXML(d, t); err != nil {
					return err
				}
				arr.arr = append(arr.arr, item)
			case xml.EndElement:
				*v = arr
				return nil
			}
		}
	case "dict":
		dict := newPlistDict()
		var pendingKey string
		haveKey := false
		for {
			tok, err := d.Token()
			if err != nil {
				return err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if t.Name.Local == "key" {
					if err := d.DecodeElement(&pendingKey, &t); err != nil {
						return err
					}
					haveKey = true
					continue
				}
				if !haveKey {
					return errors.Errorf("plist: dict value without preceding key")
				}
				var val plistValue
				if err := val.UnmarshalXML(d, t); err != nil {
					return err
				}
				dict.set(pendingKey, val)
				haveKey = false
			case xml.EndElement:
				*v = dict
				return nil
			}
		}
	default:
		return errors.Errorf("plist: unknown element <%s>", start.Name.Local)
	}
	return nil
}
