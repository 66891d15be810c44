package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "firestore-copier context key " + string(c)
}

// RunIDKey is the key for the copy run identifier in context.Context
const RunIDKey = contextKey("runID")

// ProjectIDKey is the key for the backend project in context.Context
const ProjectIDKey = contextKey("projectID")

// DatabaseIDKey is the key for the logical database in context.Context
const DatabaseIDKey = contextKey("databaseID")

// SourceKey and DestinationKey carry the collection paths of a run.
const (
	SourceKey      = contextKey("source")
	DestinationKey = contextKey("destination")
)
