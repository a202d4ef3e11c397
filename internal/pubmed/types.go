package pubmed

import (
	"encoding/xml"
	"strings"
)

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type idconvResponse struct {
	Records []struct {
		PMID  string `json:"pmid"`
		PMCID string `json:"pmcid"`
	} `json:"records"`
}

// articleSet is the root of an efetch XML reply.
type articleSet struct {
	Articles []Article `xml:"PubmedArticle"`
}

// Article is one PubmedArticle element, reduced to the fields we map.
type Article struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    mixedText `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				Title           string `xml:"Title"`
				ISOAbbreviation string `xml:"ISOAbbreviation"`
				PubDate         struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		IDType string `xml:"IdType,attr"`
		Value  string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// mixedText is the concatenated character data of an element, including
// text inside inline markup such as <i> or <sup>.
type mixedText string

func (m *mixedText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s, err := collectText(d)
	*m = mixedText(s)
	return err
}

// abstractText is one AbstractText section with its optional Label.
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	s, err := collectText(d)
	a.Text = s
	return err
}

// collectText reads tokens up to the end of the current element and returns
// its trimmed character data.
func collectText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(b.String()), nil
			}
			depth--
		}
	}
}
