package model

// Classification labels a hit as a confident or a best-effort match.
type Classification string

const (
	Exact       Classification = "exact"
	Approximate Classification = "approximate"
)

// Classify returns Exact when score reaches threshold.
func Classify(score, threshold float64) Classification {
	if score >= threshold {
		return Exact
	}
	return Approximate
}

// Stage is the cascade stage that produced a hit's score.
type Stage int

const (
	StageNone Stage = iota
	StageExactPhrase
	StageStreetTerms
	StageFullPhrase
	StageFuzzy
)

var stageNames = [...]string{"none", "exact_phrase", "street_terms", "full_phrase", "fuzzy"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON and YAML output.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Hit is a ranked search result.
type Hit struct {
	Address        string         `json:"address"`
	Street         string         `json:"street"`
	City           string         `json:"city,omitempty"`
	State          string         `json:"state,omitempty"`
	Postcode       string         `json:"postcode,omitempty"`
	Lat            float64        `json:"lat"`
	Lon            float64        `json:"lon"`
	Score          float64        `json:"score"`
	Classification Classification `json:"classification"`
	Stage          Stage          `json:"stage"`
	Source         Source         `json:"source"`
}

// NewHit builds a hit from a stored document.
func NewHit(doc Document, score float64, stage Stage, threshold float64) Hit {
	return Hit{
		Address:        doc.FullAddress,
		Street:         doc.Street,
		City:           doc.City,
		State:          doc.State,
		Postcode:       doc.Postcode,
		Lat:            doc.Lat,
		Lon:            doc.Lon,
		Score:          score,
		Classification: Classify(score, threshold),
		Stage:          stage,
		Source:         doc.Source,
	}
}
