package ogc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// MalformedCapabilitiesError reports a GetCapabilities body that is not a
// well-formed XML document. It is distinct from a document listing no types.
type MalformedCapabilitiesError struct {
	Err error
}

func (e *MalformedCapabilitiesError) Error() string {
	return fmt.Sprintf("malformed capabilities document: %v", e.Err)
}

func (e *MalformedCapabilitiesError) Unwrap() error { return e.Err }

func malformed(err error) error {
	return &MalformedCapabilitiesError{Err: err}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseTypeNames returns the trimmed Name of every FeatureType element in
// document order, duplicates included. Namespace prefixes are ignored.
// Non UTF-8 documents are decoded per their XML declaration.
func ParseTypeNames(body []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(body, utf8BOM)))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	names := []string{}
	depth := 0
	ftDepth := -1 // depth of the open FeatureType, -1 when outside
	sawRoot, inName, gotName := false, false, false
	var nameBuf strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && sawRoot {
				return nil, malformed(errors.New("multiple root elements"))
			}
			sawRoot = true
			depth++
			switch {
			case ftDepth < 0 && t.Name.Local == "FeatureType":
				ftDepth = depth
				gotName = false
			case ftDepth >= 0 && depth == ftDepth+1 && t.Name.Local == "Name" && !gotName:
				inName = true
				nameBuf.Reset()
			}
		case xml.EndElement:
			if inName && depth == ftDepth+1 {
				names = append(names, strings.TrimSpace(nameBuf.String()))
				inName = false
				gotName = true
			}
			if depth == ftDepth {
				ftDepth = -1
			}
			depth--
		case xml.CharData:
			if depth == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, malformed(errors.New("text outside root element"))
				}
				continue
			}
			if inName {
				nameBuf.Write(t)
			}
		}
	}

	if !sawRoot {
		return nil, malformed(errors.New("no root element"))
	}
	return names, nil
}
