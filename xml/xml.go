// Package xml protects tokens in XML files and loads XML files as
// configuration.
package xml

import (
	"fmt"
	"regexp"

	"github.com/beevik/etree"

	"github.com/zoobzio/protected"
)

// Name is the registry name of the XML processor.
const Name = "xml"

func init() {
	protected.RegisterProcessor(Name, New)
}

// xmlProcessor implements protected.FileProcessor for XML documents.
type xmlProcessor struct{}

// New returns an XML file processor. Attribute values are always
// candidates; the text of an element is a candidate only when the element
// has no child elements. The declaration, comments and processing
// instructions are preserved.
func New() protected.FileProcessor {
	return &xmlProcessor{}
}

func (p *xmlProcessor) ProtectFile(raw string, protect *regexp.Regexp, protectFn protected.ProtectFunc) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return "", fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return raw, nil
	}

	changed, err := protectElement(root, protect, protectFn)
	if err != nil {
		return "", err
	}
	if !changed {
		return raw, nil
	}

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("write xml: %w", err)
	}
	return out, nil
}

// protectElement rewrites el and its descendants and reports whether any
// value changed.
func protectElement(el *etree.Element, protect *regexp.Regexp, protectFn protected.ProtectFunc) (bool, error) {
	changed := false

	for i := range el.Attr {
		value := el.Attr[i].Value
		if !protect.MatchString(value) {
			continue
		}
		out, err := protectFn(value)
		if err != nil {
			return false, err
		}
		el.Attr[i].Value = out
		changed = true
	}

	children := el.ChildElements()
	if len(children) == 0 {
		value := el.Text()
		if protect.MatchString(value) {
			out, err := protectFn(value)
			if err != nil {
				return false, err
			}
			el.SetText(out)
			changed = true
		}
		return changed, nil
	}

	for _, child := range children {
		c, err := protectElement(child, protect, protectFn)
		if err != nil {
			return false, err
		}
		changed = changed || c
	}
	return changed, nil
}
