package roadmap

import (
	"strconv"
	"strings"
)

const promptTemplate = `You are SkillBridge AI Agent, a senior career guidance assistant for users in India.

The user has provided this profile:
- Confidence Level: {{confidence}}/10
- Current Skills: {{skills}}
- Desired Job Role: {{job}}
- Weekly Hours Available for Learning: {{hours}} hours/week
- Location: India

Your task: Analyze this profile and return a career roadmap as a JSON object.

IMPORTANT RULES:
- Return ONLY a valid JSON object
- No markdown, no backticks, no explanation
- No text before or after the JSON
- Just the raw JSON object starting with { and ending with }

Return this exact JSON structure (fill in real values, do not use placeholder text):
{
  "profile_summary": "Write 2-3 honest sentences about where this user currently stands",
  "current_level": "Beginner",
  "recommended_role": "Write the best job role for them",
  "alternative_roles": ["Role 1", "Role 2", "Role 3"],
  "skill_gaps": ["Gap 1", "Gap 2", "Gap 3", "Gap 4", "Gap 5"],
  "roadmap": {
    "phase_1": {
      "title": "Foundations",
      "duration": "Weeks 1-4",
      "topics": ["Topic 1", "Topic 2", "Topic 3"],
      "weekly_plan": "Describe what to study each week",
      "practical_task": "Describe a hands-on task"
    },
    "phase_2": {
      "title": "Core Skills",
      "duration": "Weeks 5-10",
      "topics": ["Topic 1", "Topic 2", "Topic 3"],
      "weekly_plan": "Describe what to study each week",
      "practical_task": "Describe a hands-on task"
    },
    "phase_3": {
      "title": "Projects",
      "duration": "Weeks 11-16",
      "topics": ["Topic 1", "Topic 2", "Topic 3"],
      "weekly_plan": "Describe what to study each week",
      "practical_task": "Build 2 real projects"
    },
    "phase_4": {
      "title": "Job Preparation",
      "duration": "Weeks 17-20",
      "topics": ["Resume building", "LinkedIn optimization", "DSA prep", "Mock interviews"],
      "weekly_plan": "Describe what to do each week",
      "practical_task": "Apply to 10 jobs, do 5 mock interviews"
    }
  },
  "weekly_schedule": "Write a practical daily/weekly schedule based on {{hours}} hours per week",
  "free_resources": {
    "youtube": [
      { "name": "Traversy Media", "topic": "Web development tutorials", "url": "https://youtube.com/@TraversyMedia" },
      { "name": "CodeWithHarry", "topic": "Programming in Hindi", "url": "https://youtube.com/@CodeWithHarry" },
      { "name": "Apna College", "topic": "DSA and placements", "url": "https://youtube.com/@ApnaCollegeOfficial" },
      { "name": "Fireship", "topic": "Quick tech concepts", "url": "https://youtube.com/@Fireship" }
    ],
    "docs": [
      { "name": "MDN Web Docs", "description": "Best reference for HTML CSS JS", "url": "https://developer.mozilla.org" },
      { "name": "freeCodeCamp", "description": "Free full courses and certifications", "url": "https://freecodecamp.org" },
      { "name": "W3Schools", "description": "Easy beginner tutorials", "url": "https://w3schools.com" }
    ],
    "practice_platforms": [
      { "name": "HackerRank", "description": "Practice coding challenges", "url": "https://hackerrank.com" },
      { "name": "LeetCode", "description": "DSA interview preparation", "url": "https://leetcode.com" },
      { "name": "GitHub", "description": "Host your projects and build portfolio", "url": "https://github.com" }
    ]
  },
  "feedback": "Write 3-4 honest sentences about whether this goal is realistic and what the biggest risks are",
  "motivation_tip": "Write one powerful motivational sentence for this specific user"
}`

// BuildPrompt renders the instruction text sent to the model for p.
// The same profile always yields the same prompt.
func BuildPrompt(p Profile) string {
	r := strings.NewReplacer(
		"{{confidence}}", strconv.Itoa(p.Confidence),
		"{{skills}}", p.Skills,
		"{{job}}", p.DesiredJob,
		"{{hours}}", p.HoursLabel(),
	)
	return r.Replace(promptTemplate)
}
