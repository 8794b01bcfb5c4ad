package gutenberg

import "encoding/xml"

// rdfDocument maps the Dublin Core subset of a Project Gutenberg per-book
// RDF file (cache/epub/<id>/pg<id>.rdf). encoding/xml matches on local
// element names, which is all we need from the dcterms/pgterms namespaces.
type rdfDocument struct {
	XMLName xml.Name `xml:"RDF"`
	Ebook   rdfEbook `xml:"ebook"`
}

type rdfEbook struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	Publisher   string       `xml:"publisher"`
	Creator     rdfCreator   `xml:"creator"`
	Language    rdfResource  `xml:"language"`
	Subjects    []rdfSubject `xml:"subject"`
}

type rdfCreator struct {
	Agent struct {
		Name string `xml:"name"`
	} `xml:"agent"`
}

type rdfResource struct {
	Description struct {
		Value string `xml:"value"`
	} `xml:"Description"`
}

type rdfSubject struct {
	Description struct {
		Value string `xml:"value"`
	} `xml:"Description"`
}

func parseRDF(data []byte) (*rdfDocument, error) {
	var doc rdfDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
