package commands

// Glyphs prefixing command help and headings.
const (
	glyphAM = "≡" // configuration
	glyphIX = "⨳" // ingest
	glyphAX = "⋈" // query
	glyphDB = "⊔" // storage
)
