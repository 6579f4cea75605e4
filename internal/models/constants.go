package models

const (
	PDFURLRegex        = `(?i)^https://.*\.pdf$`
	ContextSeparator   = "\n\n"
	NotInContextAnswer = "answer is not available in the context"
	ManifestFileName   = "manifest.yaml"
	VectorsDirName     = "vectors"
)

var (
	// QAPromptTemplate is rendered by the stuff-documents chain; context holds the
	// retrieved chunks joined by ContextSeparator.
	QAPromptTemplate = `
Answer the question as detailed as possible from the provided context, make sure to provide all the details, if the answer is not in
provided context just say, "` + NotInContextAnswer + `", don't provide the wrong answer

Context:
 {{.context}}?

Question:
{{.question}}

Answer:
`
)
