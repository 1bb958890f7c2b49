package model

// Question is a single analytics question from the input batch.
type Question struct {
	ID         string `json:"id"`
	Text       string `json:"question"`
	FormatHint string `json:"format_hint"`
}

// Route classifies how a question is answered.
type Route string

const (
	// RouteRetrieval answers purely from the document corpus.
	RouteRetrieval Route = "retrieval"
	// RouteSQL answers purely from the transactional store.
	RouteSQL Route = "sql"
	// RouteHybrid uses retrieved documents to constrain a SQL query.
	RouteHybrid Route = "hybrid"
)

// Valid reports whether r is one of the three known routes.
func (r Route) Valid() bool {
	switch r {
	case RouteRetrieval, RouteSQL, RouteHybrid:
		return true
	}
	return false
}

// NeedsSQL reports whether the route involves querying the store.
func (r Route) NeedsSQL() bool {
	return r == RouteSQL || r == RouteHybrid
}
