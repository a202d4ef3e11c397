package s2

// Fields requested from the graph API for paper lookups and search.
const PaperFields = "paperId,externalIds,title,abstract,year,venue,journal,citationCount," +
	"influentialCitationCount,isOpenAccess,openAccessPdf,fieldsOfStudy,tldr,authors,publicationTypes"

// CitationFields is PaperFields without tldr, which the citation and
// reference endpoints reject.
const CitationFields = "paperId,externalIds,title,abstract,year,venue,journal,citationCount," +
	"influentialCitationCount,isOpenAccess,openAccessPdf,fieldsOfStudy,authors,publicationTypes"

// Upstream page size limits.
const (
	MaxSearchPage      = 100
	MaxCitationsPage   = 1000
	MaxRecommendations = 500

	// maxSearchOffset is the deepest result the relevance search will page to.
	maxSearchOffset = 1000
)

// S2Paper is a paper as returned by the graph API.
type S2Paper struct {
	PaperID     string `json:"paperId"`
	ExternalIDs struct {
		DOI           string `json:"DOI"`
		PubMed        string `json:"PubMed"`
		PubMedCentral string `json:"PubMedCentral"`
		ArXiv         string `json:"ArXiv"`
	} `json:"externalIds"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     *int   `json:"year"`
	Venue    string `json:"venue"`
	Journal  *struct {
		Name string `json:"name"`
	} `json:"journal"`
	CitationCount            *int  `json:"citationCount"`
	InfluentialCitationCount *int  `json:"influentialCitationCount"`
	IsOpenAccess             *bool `json:"isOpenAccess"`
	OpenAccessPDF            *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	FieldsOfStudy []string `json:"fieldsOfStudy"`
	TLDR          *struct {
		Text string `json:"text"`
	} `json:"tldr"`
	Authors []struct {
		AuthorID string `json:"authorId"`
		Name     string `json:"name"`
	} `json:"authors"`
	PublicationTypes []string `json:"publicationTypes"`
}

type searchResponse struct {
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Next   *int      `json:"next"`
	Data   []S2Paper `json:"data"`
}

type citationsResponse struct {
	Data []struct {
		CitingPaper *S2Paper `json:"citingPaper"`
		CitedPaper  *S2Paper `json:"citedPaper"`
	} `json:"data"`
}

type recommendationsResponse struct {
	RecommendedPapers []S2Paper `json:"recommendedPapers"`
}
