// Package sellersjson parses sellers.json documents into structured records.
package sellersjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Seller type values after normalization.
const (
	TypePublisher    = "PUBLISHER"
	TypeIntermediary = "INTERMEDIARY"
	TypeBoth         = "BOTH"
)

// Seller is one authorized account entry in a sellers.json document.
type Seller struct {
	SellerID   string `json:"seller_id"`
	Name       string `json:"name,omitempty"`
	Domain     string `json:"domain,omitempty"`
	SellerType string `json:"seller_type,omitempty"`
}

// Identifier is a document-level identifier entry (e.g. TAG-ID).
type Identifier struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document is a parsed sellers.json manifest.
type Document struct {
	ContactEmail   string       `json:"contact_email,omitempty"`
	ContactAddress string       `json:"contact_address,omitempty"`
	Version        string       `json:"version,omitempty"`
	Identifiers    []Identifier `json:"identifiers,omitempty"`
	Sellers        []Seller     `json:"sellers"`
}

// Metadata is the document-level view returned alongside lookups.
type Metadata struct {
	ContactEmail   string       `json:"contact_email,omitempty"`
	ContactAddress string       `json:"contact_address,omitempty"`
	Version        string       `json:"version,omitempty"`
	Identifiers    []Identifier `json:"identifiers,omitempty"`
	SellerCount    int          `json:"seller_count"`
}

// Parse decodes a raw sellers.json body. The body must be a JSON object;
// anything else (arrays, scalars, null, malformed JSON) is rejected. An
// object with no sellers and no metadata is a valid, sparse document.
func Parse(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document body")
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	for i := range doc.Sellers {
		doc.Sellers[i].SellerID = strings.TrimSpace(doc.Sellers[i].SellerID)
		doc.Sellers[i].SellerType = strings.ToUpper(strings.TrimSpace(doc.Sellers[i].SellerType))
	}

	return &doc, nil
}

// Canonical re-encodes the document as compact JSON with a stable field
// order. This is the form stored in the cache so that identical documents
// compare byte-identical regardless of upstream formatting.
func (d *Document) Canonical() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Index builds a seller_id lookup map. On duplicate IDs the first entry wins.
func (d *Document) Index() map[string]*Seller {
	idx := make(map[string]*Seller, len(d.Sellers))
	for i := range d.Sellers {
		s := &d.Sellers[i]
		if s.SellerID == "" {
			continue
		}
		if _, exists := idx[s.SellerID]; !exists {
			idx[s.SellerID] = s
		}
	}
	return idx
}

// Metadata returns the document-level metadata with the seller count.
func (d *Document) Metadata() *Metadata {
	return &Metadata{
		ContactEmail:   d.ContactEmail,
		ContactAddress: d.ContactAddress,
		Version:        d.Version,
		Identifiers:    d.Identifiers,
		SellerCount:    len(d.Sellers),
	}
}
