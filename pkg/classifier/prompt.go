package classifier

import (
	"sort"
	"strings"
)

// positionTypeKeywords seeds the prompt; the model is told the list is not
// exhaustive.
var positionTypeKeywords = []string{
	"full time", "full-time", "part time", "part-time",
	"contract", "contractor", "w2", "c2c", "corp to corp", "corp-to-corp",
	"c2h", "contract to hire", "temp to perm", "temporary", "permanent",
	"internship", "intern",
	"c2c accepted", "c2c not accepted", "no c2c", "c2c ok",
	"w2 only", "w2 preferred", "no w2",
}

const promptTemplate = `You are an assistant that analyzes JOB DESCRIPTIONS and identifies anything related to POSITION TYPE.

POSITION TYPE information includes (but is NOT limited to) things like:
- Employment type: Full-time, Part-time, Contract, Temporary, Permanent, Internship.
- Pay-structure type: W2, C2C (Corp to Corp), C2H (Contract to Hire), Contract-to-Hire, Temp-to-Perm.
- Explicit statements such as:
  - "C2C accepted", "C2C not accepted", "No C2C"
  - "W2 only", "W2 preferred", "no W2"
- Any synonyms or phrasing that implies the position type, even if the wording is slightly different.

IMPORTANT CONSTRAINTS (MUST FOLLOW):
1. FALSE POSITIVES ARE OK. FALSE NEGATIVES ARE NOT.
   - If you are unsure whether a phrase indicates a position type, INCLUDE IT and explain briefly.
2. If there is ANY possible reference to position type, YOU MUST RETURN IT.
3. ONLY return "none" when you are absolutely certain that there is truly no position-type information at all.
4. Do NOT invent information that contradicts the job description.

KNOWN POSITION-TYPE KEYWORDS for guidance (this list is NOT exhaustive):
{{keywords}}

JOB DESCRIPTION:
----------------
{{description}}
----------------

Return a concise JSON object with this structure:

{
  "position_types": ["short canonical label", ...],
  "raw_phrases": ["exact or near-exact phrase from the text", ...]
}

If nothing at all is found, return:

{
  "position_types": [],
  "raw_phrases": []
}`

// BuildPrompt renders the position-type prompt for a job description
func BuildPrompt(description string) string {
	seen := make(map[string]bool, len(positionTypeKeywords))
	var kws []string
	for _, k := range positionTypeKeywords {
		if !seen[k] {
			seen[k] = true
			kws = append(kws, k)
		}
	}
	sort.Strings(kws)

	return strings.NewReplacer(
		"{{keywords}}", strings.Join(kws, ", "),
		"{{description}}", description,
	).Replace(promptTemplate)
}
