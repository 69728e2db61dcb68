package drm

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// ACSM is a parsed Adobe Content Server Message. The pipeline only needs
// the target format; the raw bytes go to the connector untouched.
type ACSM struct {
	Raw    []byte
	Format string
}

// ParseACSM validates an ACSM fulfillment token and extracts the format
// the fulfillment will produce (the dc:format element).
func ParseACSM(data []byte) (*ACSM, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	sawRoot := false
	var format string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse ACSM document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			if start.Name.Local != "fulfillmentToken" {
				return nil, fmt.Errorf("unexpected ACSM root element %q", start.Name.Local)
			}
			sawRoot = true
			continue
		}
		if start.Name.Local == "format" {
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				return nil, fmt.Errorf("failed to parse ACSM format element: %w", err)
			}
			format = text
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("ACSM document contains no fulfillment token")
	}
	if format == "" {
		return nil, fmt.Errorf("ACSM document carries no format")
	}
	return &ACSM{Raw: data, Format: format}, nil
}
