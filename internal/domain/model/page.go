package model

// Page holds top/skip pagination for execution and document listings. The
// remote API defaults to top=100, skip=0; the client only puts the parameters
// on the query string when they differ from those defaults.
type Page struct {
	Top  int
	Skip int
}

// DefaultPage matches the remote API's implicit pagination.
var DefaultPage = Page{Top: 100, Skip: 0}
