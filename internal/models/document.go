package models

// Document is a keyed serialized record ready to be upserted.
type Document struct {
	Key string
	Doc []byte
}

// NodeDocument is a flow node document, linked to the definition it was
// expanded from.
type NodeDocument struct {
	Key     string
	FlowKey string
	Doc     []byte
}
