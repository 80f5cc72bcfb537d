package extract

import "fmt"

// The two instruction templates are a fixed contract: downstream consumers
// depend on these exact output key names.

const grantPromptTemplate = `You are a helpful assistant that extracts structured grant information from webpages or PDFs.

Given the following grant page content:

[START GRANT TEXT]
%s
[END GRANT TEXT]

Extract and return a valid JSON object with the following keys:
- grant_name: The full name of the grant.
- grant_description: A 2-4 sentence summary of what the grant is about, including its purpose and target outcomes.
- timeline_condition: Any restrictions or expectations regarding project duration or start/end dates.
- eligible_applicants: Who can apply (e.g., individuals, nonprofits, students, citizen groups).
- budget_policy: Any rules or caps on funding, such as maximum amount or funding structure.
- key_directions: A list of strategic priorities or themes the grant supports (e.g., elderly care, digital inclusion).
- expenses_allowed: Types of expenses that are covered (e.g., logistics, materials, venue rental).
- expenses_disallowed: Types of expenses that are NOT covered (e.g., staff salaries, overseas travel).
- selection_criteria: The evaluation or selection criteria used to decide on successful applications.
- supporting_documents_required: A list of application documents or information the applicant needs to submit.

Be as detailed and accurate as possible. If some fields are not found in the text, return an empty string or array for those keys.

Respond only with a valid JSON object.`

const projectPromptTemplate = `You are a helpful assistant for extracting structured data from project proposals submitted for community grant funding.

Here is the full project proposal text:

[START PROJECT TEXT]
%s
[END PROJECT TEXT]

From this, extract and return a valid JSON object with the following keys:
- project_name: The title of the project.
- project_description: A short summary (2-4 sentences) of what the project aims to do.
- timeline: The intended duration or dates of the project.
- budget: The estimated total cost or requested budget (SGD).
- key_objectives: A list of the project's main objectives or planned activities.
- key_directions: A list of strategic themes or goals this project aligns with (e.g. digital literacy, pandemic support, elderly outreach).
- target_beneficiaries: Groups or individuals that the project benefits (e.g., seniors in rental flats).
- volunteer_roles: What kinds of roles and responsibilities volunteers will have.
- partnerships: Any partner organizations or collaborators mentioned.
- justification: The reason this project was proposed; the background problem or community need.
- evaluation_methods: Metrics or methods used to track the project's success.

Respond only with a valid JSON object. If information is not found, return an empty string or empty array for that key.`

func buildPrompt(mode, text string) string {
	if mode == ModeProject {
		return fmt.Sprintf(projectPromptTemplate, text)
	}
	return fmt.Sprintf(grantPromptTemplate, text)
}
