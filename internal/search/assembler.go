package search

// Assembler is the Response Assembler of spec §4.10: it joins the final
// selected candidates with their hydrated bodies/metadata and attaches the
// debug trace.
type Assembler struct{}

// NewAssembler creates a stateless assembler.
func NewAssembler() *Assembler { return &Assembler{} }

// Build constructs the final Response from the MMR-selected candidates and
// the pipeline's accumulated debug counters.
func (a *Assembler) Build(q Query, topK int, selected []*Candidate, debug ResponseDebug) *Response {
	resp := &Response{
		Query:   q.Text,
		App:     q.App,
		TopK:    topK,
		Debug:   debug,
		Results: make([]Result, 0, len(selected)),
	}
	for _, c := range selected {
		resp.Results = append(resp.Results, Result{
			ID:       c.CID,
			Document: c.Body,
			Metadata: c.Metadata,
			Debug: ResultDebug{
				Coverage:   c.Coverage,
				TokenHits:  c.TokenHits,
				PhraseHits: c.PhraseHits,
			},
		})
	}
	return resp
}
