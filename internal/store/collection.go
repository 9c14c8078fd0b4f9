package store

// Collection names a document table and its key column. Every collection
// has the shape (<key> text primary key, doc jsonb).
type Collection struct {
	Table     string
	KeyColumn string
}

var (
	ContactsCollection    = Collection{Table: "rapidpro_contacts", KeyColumn: "uuid"}
	MessagesCollection    = Collection{Table: "rapidpro_messages", KeyColumn: "id"}
	RunsCollection        = Collection{Table: "rapidpro_runs", KeyColumn: "uuid"}
	FlowsCollection       = Collection{Table: "rapidpro_flows", KeyColumn: "uuid"}
	DefinitionsCollection = Collection{Table: "rapidpro_definitions", KeyColumn: "uuid"}
)

// Flow nodes carry their parent definition uuid in an extra column.
const (
	nodesTable     = "rapidpro_definitions_nodes"
	watermarkTable = "rapidpro_runs_watermark"
)
