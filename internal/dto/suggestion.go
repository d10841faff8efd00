package dto

// CursorPayload is the JSON rendering of a suggestion cursor: the column
// schema, the host cell type of each column and one array of cells per row.
type CursorPayload struct {
	Columns []string        `json:"columns"`
	Types   []string        `json:"types"`
	Rows    [][]interface{} `json:"rows"`
	Count   int             `json:"count"`
}

// ProviderTypeResponse reports the MIME type of a provider URI.
type ProviderTypeResponse struct {
	URI  string `json:"uri"`
	MIME string `json:"mime"`
}
