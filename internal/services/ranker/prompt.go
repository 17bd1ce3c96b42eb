package ranker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/venari/internal/models"
)

// rankerResponse is the strict shape expected from the model
type rankerResponse struct {
	Score           int      `json:"score"`
	Recommended     bool     `json:"recommended"`
	Summary         string   `json:"summary"`
	Pros            []string `json:"pros"`
	Cons            []string `json:"cons"`
	KeywordsMatched []string `json:"keywords_matched"`
}

// promptMaxResumeChars bounds resume text in the prompt
const promptMaxResumeChars = 6000

// BuildPrompt composes the ranking prompt from the profile snapshot
// and the job. Composition is deterministic: the same inputs always
// yield the same prompt.
func BuildPrompt(profile *models.UserProfile, job *models.Job) string {
	var b strings.Builder

	b.WriteString("You are evaluating how well a job posting matches a candidate.\n\n")

	b.WriteString("## Candidate\n")
	if len(profile.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
	}
	if len(profile.Preferences.Keywords) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(profile.Preferences.Keywords, ", "))
	}
	if profile.Preferences.ExperienceLevel != "" {
		fmt.Fprintf(&b, "Experience level: %s\n", profile.Preferences.ExperienceLevel)
	}
	if profile.Preferences.WorkType != "" && profile.Preferences.WorkType != models.WorkTypeAny {
		fmt.Fprintf(&b, "Work type preference: %s\n", profile.Preferences.WorkType)
	}
	for _, exp := range profile.Experience {
		fmt.Fprintf(&b, "Experience: %s at %s (%d years)\n", exp.Title, exp.Company, exp.Years)
	}
	for _, edu := range profile.Education {
		fmt.Fprintf(&b, "Education: %s, %s\n", edu.Degree, edu.Institution)
	}
	if profile.ResumeText != "" {
		resume := profile.ResumeText
		if len(resume) > promptMaxResumeChars {
			resume = resume[:promptMaxResumeChars]
		}
		fmt.Fprintf(&b, "\nResume:\n%s\n", resume)
	}

	b.WriteString("\n## Job\n")
	fmt.Fprintf(&b, "Title: %s\n", job.Title)
	if job.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", job.Location)
	}
	if job.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", job.Description)
	}

	b.WriteString(`
## Instructions
Return ONLY a JSON object with exactly these keys:
{"score": <int 0-100>, "recommended": <bool>, "summary": <string, 1-2 sentences>, "pros": [<string>...], "cons": [<string>...], "keywords_matched": [<string>...]}
No text outside the JSON object.`)

	return b.String()
}

// ParseResponse validates the model output against the expected shape.
// Code fences are tolerated; anything else malformed is an error.
func ParseResponse(response string) (*rankerResponse, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed rankerResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid ranker JSON: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 100 {
		return nil, fmt.Errorf("score %d out of range", parsed.Score)
	}
	return &parsed, nil
}
