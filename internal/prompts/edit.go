package prompts

import "fmt"

// DecideSearchFormat is the strict JSON shape for the search decision step.
const DecideSearchFormat = `{
"needs_search": true or false,
"search_query": "query string or null",
"reasoning": "why search is or is not needed"
}`

const decideSearchTemplate = `A user wants to edit an existing research report. Decide whether fulfilling the edit requires retrieving NEW papers, or whether the report's existing references (plus any papers the user named) are enough.

<current_report>
%s
</current_report>

<edit_instruction>
%s
</edit_instruction>

<mentioned_papers>
%s
</mentioned_papers>

Search is needed when the instruction asks about topics, methods or results the current references do not cover. Search is NOT needed for restructuring, trimming, rewording, deleting or reordering what is already there, or when the user-mentioned papers suffice.

Output STRICT JSON with this schema:
` + DecideSearchFormat

func BuildDecideSearchPrompt(reportSummary, instruction, mentionedPapers string) string {
	if mentionedPapers == "" {
		mentionedPapers = "None"
	}
	return fmt.Sprintf(decideSearchTemplate, reportSummary, instruction, mentionedPapers)
}

// EditPlanFormat enumerates the per-section actions the planner may choose.
const EditPlanFormat = `{
"cot": "Reasoning for how to edit each section...",
"report_title": "Keep the existing title, or an updated title if the instruction requires it",
"section_plans": [
  {"section_index": 0, "section_title": "Existing Section Name", "action": "keep|expand|add_to|replace|delete", "reasoning": "why", "new_papers": [corpus ids], "specific_instruction": "optional targeted instruction"}
],
"new_sections": [
  {"title": "New Section Name", "instruction": "what to cover", "papers": [corpus ids]}
]
}`

const editPlanTemplate = `A user wants to edit the report "%s". Plan what to do with each existing section, and what new sections (if any) to add.

<current_sections>
%s
</current_sections>

<edit_instruction>
%s
</edit_instruction>

<mentioned_papers>
%s
</mentioned_papers>

<available_papers>
%s
</available_papers>

For each section in the current report, choose one action:

keep: the section is fine as-is and needs no changes
expand: add more content to the section with the new material
add_to: weave the listed papers into this existing section
replace: replace this section's content entirely
delete: remove this section

You can also create new sections that were not in the original report.

IMPORTANT: Every section of the current report must appear in section_plans exactly once. Sections that need no changes get action "keep" and an empty new_papers list. Respect the existing structure unless the instruction requires changes.

Output STRICT JSON with this schema:
` + EditPlanFormat

func BuildEditPlanPrompt(reportTitle, sectionsSummary, instruction, mentionedPapers, availablePapers string) string {
	if reportTitle == "" {
		reportTitle = "Research Report"
	}
	if mentionedPapers == "" {
		mentionedPapers = "None"
	}
	if availablePapers == "" {
		availablePapers = "None"
	}
	return fmt.Sprintf(editPlanTemplate, reportTitle, sectionsSummary, instruction, mentionedPapers, availablePapers)
}

const sectionEditTemplate = `A user wants to EDIT one section of an existing report.

The section to edit is:
<section_name>
%s
</section_name>

<current_section_content>
%s
</current_section_content>

<action>
%s
</action>

<edit_instruction>
%s
</edit_instruction>

Here are the other sections of the report, for coherence:
<report_context>
%s
</report_context>

Here are the reference quotes for this section (existing citations plus any new papers):
<section_references>
%s
</section_references>

<action-specific instructions>
**expand**: Keep all current content and add NEW paragraphs that incorporate the new references. The new content should flow naturally from the existing content.
**add_to**: Integrate the new references into the existing narrative, adding sentences or paragraphs as needed.
**replace**: Write entirely new content based on the new references, replacing the current content completely.
</action-specific instructions>

<citation instructions>
- Cite references inline using their key in the format [ID | AUTHOR_REF | YEAR | Citations: CITES], placed after the text they support.
- For expand and add_to: keep existing citations in place and add new citations for the new content.
- For replace: use only the new references provided.
- Knowledge of your own is cited as [LLM MEMORY | 2024], never alongside another evidence source.
</citation instructions>

<writing instructions>
- Use direct and simple language. Be concise.
- Maintain the voice and style of the existing content.
- Do not restate points already made in the other sections.
- Write the section content using markdown format. Output the section body only, without the title.
</writing instructions>`

func BuildSectionEditPrompt(sectionTitle, sectionContent, action, instruction, reportContext, references string) string {
	if references == "" {
		references = "No references available"
	}
	return fmt.Sprintf(sectionEditTemplate, sectionTitle, sectionContent, action, instruction, reportContext, references)
}

const newSectionTemplate = `A user wants to ADD a new section to an existing report.

Here is the current report:
<current_report>
%s
</current_report>

The new section's title is:
<section_name>
%s
</section_name>

<section_instruction>
%s
</section_instruction>

Here are the reference quotes for this section:
<section_references>
%s
</section_references>

<citation instructions>
- Cite references inline using their key in the format [ID | AUTHOR_REF | YEAR | Citations: CITES], placed after the text they support.
- Knowledge of your own is cited as [LLM MEMORY | 2024], never alongside another evidence source.
</citation instructions>

<writing instructions>
- Use direct and simple language. Be concise.
- Match the style of the overall report and do not repeat its existing points.
- Write the section content using markdown format. Output the section body only, without the title.
</writing instructions>`

func BuildNewSectionPrompt(reportSummary, sectionTitle, instruction, references string) string {
	if references == "" {
		references = "No references available"
	}
	return fmt.Sprintf(newSectionTemplate, reportSummary, sectionTitle, instruction, references)
}
