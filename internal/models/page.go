package models

import "bytes"

// Batch is the record list of one response. Anything other than a JSON
// array (null, an object, a scalar) decodes to an empty batch.
type Batch []Record

func (b *Batch) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		*b = nil
		return nil
	}
	var records []Record
	if err := DecodeJSON(data, &records); err != nil {
		return err
	}
	*b = records
	return nil
}

// Page is one response of a paginated RapidPro collection.
type Page struct {
	Results  Batch   `json:"results"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`

	// Raw is the undecoded response body.
	Raw []byte `json:"-"`
}

// HasNext reports whether another page follows.
func (p *Page) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// DefinitionsPage is the response of the definitions resource.
type DefinitionsPage struct {
	Flows Batch `json:"flows"`
}
