package prompts

import (
	"fmt"
	"strings"
)

// QuoteExtractionSystemPrompt instructs the model to lift verbatim passages
// from one paper's snippets. The model answers with the stitched quote only,
// or the literal word None when nothing in the paper is relevant.
const QuoteExtractionSystemPrompt = `In this task, you are presented with a question asked by a user and an academic paper with snippets and metadata.

Stitch together text from the paper content that helps answer the question.

To be clear, copy EXACT text ONLY.

Include any references that are part of the text to be copied. The references can occur at the beginning, middle, or end of the text. Include all forms of academic citation if they are contiguous with your selected quote.

Use ... to indicate that there is a gap of excluded text between text you chose.

For example: Text to answer... More text here... start a sentence in the middle.

No need to use the title. Sometimes you will see authors and/or section titles. Do not use them in your answer.

Output the quote ONLY. Do not introduce it with any text, formatting, or white spaces.

If the paper does not help answer the question at all, just output None`

// ClusterPlanFormat is the JSON schema the planner must emit. Quote indices
// refer to positions in the numbered quote list included in the prompt.
const ClusterPlanFormat = `{
"cot": "Reasoning about how to organize the quotes into report sections...",
"report_title": "Title of the report",
"dimensions": [
  {"name": "Section Name", "format": "synthesis or list", "quotes": [quote indices]},
  ...
]
}`

const clusterSystemPrompt = `In this task, you are presented with a question asked by a user and quoted passages that were collected from a set of academic papers to answer it.

Your task is to organize the quotes into a report outline: a set of named sections (dimensions), each holding the indices of the quotes that belong to it.

Rules:
- Every quote should be assigned to at least one section.
- Sections should follow a logical narrative order for answering the question.
- Each section has a format: "synthesis" for prose paragraphs, "list" for an itemized rundown of papers.
- Prefer a few substantial sections over many thin ones.

Output STRICT JSON with this schema:
` + ClusterPlanFormat

func BuildQuoteExtractionPrompt(query, paperContent string) string {
	var b strings.Builder
	b.WriteString("Here is the question:\n<question>\n")
	b.WriteString(query)
	b.WriteString("\n</question>\n\nAnd here is the paper with snippets and metadata:\n<paper_with_snippets>\n")
	b.WriteString(paperContent)
	b.WriteString("\n</paper_with_snippets>")
	return b.String()
}

func BuildClusterPrompt(query, quotes string) string {
	return fmt.Sprintf("%s\n\nHere is the question:\n<question>\n%s\n</question>\n\nHere are the quotes:\n<quotes>\n%s\n</quotes>", clusterSystemPrompt, query, quotes)
}

// SectionSynthesisTemplate drives one section of the report at a time. Earlier
// sections are passed back in so the model stays coherent and avoids repeating
// points it already made.
const SectionSynthesisTemplate = `The user asked the following question:

<question>
%s
</question>

Here is the overall plan for the report:

<plan>
%s
</plan>

Here is what has already been written:
<already_written_sections>
%s
</already_written_sections>

The section I would like you to write next is:
<section_name>
%s
</section_name>

Here are the reference quotes for this section:
<section_references>
%s
</section_references>

<citation instructions>
- Each reference is a key value pair, where the key is a pipe separated string enclosed in square brackets representing [ID | AUTHOR_REF | YEAR | Citations: CITES]. The value consists of the quote and sometimes a dictionary of inline citations referenced in that quote.
- Cite the relevant references inline using the corresponding reference key in the format: [ID | AUTHOR_REF | YEAR | Citations: CITES]. You may use more than one reference key in a row if appropriate.
- If a quote's accompanying inline citations are relevant to the claim you are writing, cite them too using the same format.
- All citations must come after the text they support. First text, then the citation.
- You can add something from your own knowledge only if you are sure of its truth. Cite it as [LLM MEMORY | 2024] and never alongside another evidence source.
</citation instructions>

<writing instructions>
- Before the section write a 2 sentence "TLDR;" of the section. No citations there. Precede it with the text "TLDR;"
- Use direct and simple language everywhere, like "use" and "can".
- Use the citation count to decide what is "notable". Only references with 100 or more citations justify value judgments.
- Be concise. Do not repeat points made in already written sections.
</writing instructions>

<format and structure instructions>
Start with the section name, then a newline, then "TLDR;" and the TLDR, then the content.
- If the section name in the plan carries "(list)", render the content as a LIST (required).
- If it carries "(synthesis)", write SYNTHESIS paragraphs (required).
- Write the section content using markdown format.
</format and structure instructions>`

func BuildSectionPrompt(query, plan, alreadyWritten, sectionName, references string) string {
	if alreadyWritten == "" {
		alreadyWritten = "None yet. This is the first section."
	}
	if references == "" {
		references = "No references available"
	}
	return fmt.Sprintf(SectionSynthesisTemplate, query, plan, alreadyWritten, sectionName, references)
}
