package artist

import "fmt"

const plannerSystem = `You are an expert at analyzing scientific and technical figures. Your task is to analyze an image and produce a structured JSON description that a TikZ code generator can use to recreate it accurately.

Pay special attention to alignment, symmetry, and consistent spacing: if elements appear *intended* to be evenly spaced but are slightly off, note the intended layout, not the imperfect one.

Return ONLY valid JSON (no markdown fencing) matching this structure:
{
  "figure_type": "pipeline | architecture | state_diagram | comparison | graph | other",
  "layout": "horizontal_flow | vertical_flow | grid | freeform",
  "elements": [
    {
      "id": "e1",
      "type": "rect | circle | arrow | text | curve | shaded_region | diamond",
      "label": "text content or empty string",
      "position_hint": "description of where this element sits relative to others"
    }
  ],
  "connections": [
    {"from": "e1", "to": "e2", "type": "arrow | line | dashed_arrow | bidirectional"}
  ],
  "color_scheme": "description of colors used and their semantic meaning",
  "aesthetic_notes": "observations about alignment, spacing, and style intent"
}`

const plannerUserBase = `Analyze the figure in the image and return a structured JSON description of it. Identify all visual elements, their labels, layout, connections, and aesthetic properties.`

const plannerUserCleanSuffix = `

Additionally: note where alignment, symmetry, or spacing could be improved even if the input is imperfect. Flag elements that appear intended to be uniformly spaced or aligned but are not.`

func plannerUser(clean bool) string {
	if clean {
		return plannerUserBase + plannerUserCleanSuffix
	}
	return plannerUserBase
}

const generatorSystem = `You are an expert TikZ programmer. Given a structured plan and the original figure image, produce TikZ code that recreates the figure as accurately as possible.

Rules:
- Output ONLY the \begin{tikzpicture}...\end{tikzpicture} block, nothing else.
- No \documentclass, \usepackage, or preamble, only the tikzpicture environment.
- Define ALL styles inside the tikzpicture (\tikzset{} or as tikzpicture options).
- Use only standard TikZ anchor names (north, south, east, west, center, north west, etc.).
- Do NOT use tikz-cd or any macros from external paper preambles.
- Use relative positioning (right=of, below=of) when possible; use calc for precise offsets.
- Use \tikzmath{\varname=value;} to define repeated numeric constants cleanly.
- Wrap your output in a ` + "```latex" + ` code fence.`

func generatorUser(planJSON, preamble string) string {
	preambleSection := preamble
	if preambleSection == "" {
		preambleSection = "(no custom preamble, use standard TikZ only)"
	}
	return fmt.Sprintf(`Here is the structured plan describing the figure:

<plan>
%s
</plan>

The following TikZ preamble styles are available to you:

<preamble>
%s
</preamble>

Now produce the TikZ code for this figure. Remember: output only the \begin{tikzpicture}...\end{tikzpicture} block in a `+"```latex"+` code fence.`, planJSON, preambleSection)
}

const refinerSystem = `You are an expert TikZ programmer. You are refining existing TikZ code based on specific feedback from an evaluator.

Rules:
- Make TARGETED edits, do not rewrite from scratch.
- The current code compiles successfully, so preserve its overall structure.
- Focus only on the issues listed in the critique.
- Output ONLY the updated \begin{tikzpicture}...\end{tikzpicture} block in a ` + "```latex" + ` code fence.`

func refinerUser(currentCode, critiqueJSON string) string {
	return fmt.Sprintf(`Here is the current TikZ code:

<current_code>
%s
</current_code>

Here is the evaluator critique listing specific issues to fix:

<critique>
%s
</critique>

Make targeted edits to fix these issues. Do not rewrite the code from scratch. Return the updated \begin{tikzpicture}...\end{tikzpicture} block in a `+"```latex"+` code fence.`, currentCode, critiqueJSON)
}

const compileFixSystem = `You are an expert TikZ programmer. The TikZ code below failed to compile with pdflatex. Fix the error with the minimal change necessary.

Rules:
- Make ONLY the change needed to fix the compilation error.
- Do not improve or restructure unrelated code.
- Output ONLY the fixed \begin{tikzpicture}...\end{tikzpicture} block in a ` + "```latex" + ` code fence.`

func compileFixUser(tikzCode, errorSummary string) string {
	return fmt.Sprintf(`The following TikZ code failed to compile:

<code>
%s
</code>

The pdflatex error:

<error>
%s
</error>

Fix the compilation error and return the corrected \begin{tikzpicture}...\end{tikzpicture} block in a `+"```latex"+` code fence.`, tikzCode, errorSummary)
}
