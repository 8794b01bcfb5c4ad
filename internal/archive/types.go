package archive

import (
	"encoding/json"
	"strconv"
	"strings"
)

// multiValue tolerates the Archive.org metadata schema's habit of returning
// the same field as a bare string, a number, or an array of either.
type multiValue []string

func (m *multiValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = flatten(raw)
	return nil
}

func flatten(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(v)}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	default:
		return nil
	}
}

// First returns the first value or the empty string.
func (m multiValue) First() string {
	if len(m) == 0 {
		return ""
	}
	return strings.TrimSpace(m[0])
}

// List returns all values.
func (m multiValue) List() []string {
	return []string(m)
}

// Int parses the first value as an integer, defaulting to 0.
func (m multiValue) Int() int {
	n, err := strconv.Atoi(m.First())
	if err != nil {
		return 0
	}
	return n
}

// searchResponse is the shape of an advancedsearch.php result page.
type searchResponse struct {
	Response struct {
		NumFound int         `json:"numFound"`
		Docs     []searchDoc `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	Identifier string `json:"identifier"`
}

// metadataResponse is the shape of a /metadata/<identifier> document.
type metadataResponse struct {
	Metadata itemMetadata `json:"metadata"`
	Files    []fileEntry  `json:"files"`
}

type itemMetadata struct {
	Title         multiValue `json:"title"`
	Creator       multiValue `json:"creator"`
	Description   multiValue `json:"description"`
	Date          multiValue `json:"date"`
	Publisher     multiValue `json:"publisher"`
	Language      multiValue `json:"language"`
	Subject       multiValue `json:"subject"`
	ISBN          multiValue `json:"identifier-isbn"`
	Pages         multiValue `json:"pages"`
	DownloadCount multiValue `json:"download_count"`
}

type fileEntry struct {
	Name string `json:"name"`
}
