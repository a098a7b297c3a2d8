package models

// OperatorEntry maps raw merchant/operator text to a canonical name, an
// owning application and a P2P classification. The pipeline only reads
// entries; editing happens outside the core.
type OperatorEntry struct {
	CanonicalName string   `yaml:"canonical_name" json:"canonical_name"`
	AppName       string   `yaml:"app_name" json:"app_name"`
	IsP2P         bool     `yaml:"is_p2p" json:"is_p2p"`
	Synonyms      []string `yaml:"synonyms" json:"synonyms"`
}
