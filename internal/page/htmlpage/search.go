package htmlpage

// ResultsRenderer returns the results markup for a search query.
type ResultsRenderer func(query string) string

// SimulateSearch makes the page behave like a retailer search: clicking an
// element matching button reads the value of input and replaces the content
// of results with render(query).
func (p *Page) SimulateSearch(button, input, results string, render ResultsRenderer) {
	p.OnClick(button, func(p *Page) error {
		return p.SetInnerHTML(results, render(p.Value(input)))
	})
}
