// Package content sniffs a content type from a byte prefix. It never
// parses or transforms file content — only classifies it, handing the
// MIME type ("application/edifact" or "application/xml" for the two
// structural checks) to the FileContentPublisher sink.
package content

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"

	"github.com/littleandi/filehorizon/internal/config"
)

// Detector classifies a byte prefix of a file's content.
type Detector interface {
	Detect(prefix []byte) string
}

// SnifferCatalogue composes general MIME sniffing with two narrow,
// prefix-only structural checks gated by configuration.
type SnifferCatalogue struct {
	enableXml     bool
	enableEdifact bool
}

func NewSnifferCatalogue(cfg config.ContentDetection) *SnifferCatalogue {
	return &SnifferCatalogue{enableXml: cfg.EnableXml, enableEdifact: cfg.EnableEdifact}
}

// edifactPrefixes are the UN/EDIFACT service segment tags that always
// open an interchange, per UN/EDIFACT syntax rules; detecting one of
// these at the start of the file is sufficient to classify it without
// parsing segments.
var edifactPrefixes = [][]byte{[]byte("UNA"), []byte("UNB")}

func (c *SnifferCatalogue) Detect(prefix []byte) string {
	if c.enableEdifact {
		for _, p := range edifactPrefixes {
			if bytes.HasPrefix(prefix, p) {
				return "application/edifact"
			}
		}
	}

	mt := mimetype.Detect(prefix)
	if c.enableXml && mt != nil {
		for m := mt; m != nil; m = m.Parent() {
			if m.Is("text/xml") || m.Is("application/xml") {
				return "application/xml"
			}
		}
	}
	if mt == nil {
		return "application/octet-stream"
	}
	return mt.String()
}
