package marc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/antchfx/xmlquery"
)

// XMLReader streams records from a MARCXML document. It cannot seek; use
// Spool to obtain a seekable binary copy.
type XMLReader struct {
	parser *xmlquery.StreamParser
	count  int64
}

// NewXMLReader prepares a streaming parser over r.
func NewXMLReader(r io.Reader) (*XMLReader, error) {
	parser, err := xmlquery.CreateStreamParser(r, "//record")
	if err != nil {
		return nil, fmt.Errorf("create marcxml parser: %w", err)
	}
	return &XMLReader{parser: parser}, nil
}

// Read returns the next record. For MARCXML the Offset of a *FormatError is
// the zero-based record ordinal rather than a byte offset. Broken XML syntax
// is not recoverable and is returned as a plain error.
func (x *XMLReader) Read() (*Record, error) {
	node, err := x.parser.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("parse marcxml record %d: %w", x.count, err)
	}
	ordinal := x.count
	x.count++
	return recordFromNode(node, ordinal)
}

func recordFromNode(node *xmlquery.Node, ordinal int64) (*Record, error) {
	rec := NewRecord("")
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch child.Data {
		case "leader":
			rec.SetLeader(child.InnerText())
		case "controlfield":
			tag := child.SelectAttr("tag")
			if len(tag) != TagLength {
				return nil, &FormatError{Offset: ordinal, ControlNumber: rec.ControlNumber(), Tag: tag, Reason: "controlfield tag must be exactly 3 characters"}
			}
			rec.AppendField(NewControlField(tag, child.InnerText()))
		case "datafield":
			tag := child.SelectAttr("tag")
			if len(tag) != TagLength {
				return nil, &FormatError{Offset: ordinal, ControlNumber: rec.ControlNumber(), Tag: tag, Reason: "datafield tag must be exactly 3 characters"}
			}
			var subfields Subfields
			for sf := child.FirstChild; sf != nil; sf = sf.NextSibling {
				if sf.Type != xmlquery.ElementNode || sf.Data != "subfield" {
					continue
				}
				code := sf.SelectAttr("code")
				if len(code) != 1 {
					return nil, &FormatError{Offset: ordinal, ControlNumber: rec.ControlNumber(), Tag: tag, Reason: fmt.Sprintf("subfield code %q must be one character", code)}
				}
				subfields = subfields.Add(code[0], sf.InnerText())
			}
			rec.AppendField(NewDataField(tag, indicator(child.SelectAttr("ind1")), indicator(child.SelectAttr("ind2")), subfields))
		}
	}
	return rec, nil
}

func indicator(value string) byte {
	if value == "" {
		return ' '
	}
	return value[0]
}

// Format identifies a record serialization.
type Format int

const (
	FormatBinary Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "marcxml"
	}
	return "binary"
}

// DetectFormat sniffs the first non-blank byte of path: '<' means MARCXML.
func DetectFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatBinary, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return FormatBinary, nil
			}
			return FormatBinary, fmt.Errorf("sniff %s: %w", path, err)
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '<':
			return FormatXML, nil
		default:
			return FormatBinary, nil
		}
	}
}
