package openalex

// Work is an OpenAlex work as returned by the works endpoint.
type Work struct {
	ID    string `json:"id"`
	DOI   string `json:"doi"`
	Title string `json:"title"`
	IDs   struct {
		PMID  string `json:"pmid"`
		PMCID string `json:"pmcid"`
	} `json:"ids"`
	PublicationYear *int `json:"publication_year"`
	CitedByCount    *int `json:"cited_by_count"`
	Authorships     []struct {
		Author struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	OpenAccess            struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
	PrimaryLocation *struct {
		Source *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Concepts []struct {
		DisplayName string `json:"display_name"`
	} `json:"concepts"`
	ReferencedWorks []string `json:"referenced_works"`
}

type worksResponse struct {
	Meta struct {
		Count      int     `json:"count"`
		NextCursor *string `json:"next_cursor"`
	} `json:"meta"`
	Results []Work `json:"results"`
}
