package models

// Verse is a scripture passage shown for a day, with a short prompt
type Verse struct {
	ID         int    `yaml:"id" json:"id"`
	Reference  string `yaml:"reference" json:"reference"`
	Text       string `yaml:"text" json:"text"`
	Reflection string `yaml:"reflection" json:"reflection"`
}
