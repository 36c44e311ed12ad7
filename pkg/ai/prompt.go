package ai

import "strings"

const promptPreamble = "You are an expert academic evaluator tasked with providing a comprehensive assessment of an assignment."

const promptInstructions = `EVALUATION INSTRUCTIONS:
1. Carefully analyze the assignment against each criterion
2. Provide a detailed score for each criterion
3. Give specific, constructive feedback
4. Suggest concrete improvements
5. Calculate a total weighted score`

const promptSchema = `Please structure your response as a detailed JSON with the following format:
{
    "criterion_breakdown": [
        {
            "name": "Criterion Name",
            "max_points": 20,
            "awarded_points": 15,
            "specific_feedback": "Detailed comments on performance",
            "improvement_suggestions": "Specific recommendations"
        }
    ],
    "total_score": 85,
    "overall_grade": "B+",
    "overall_feedback": "Comprehensive summary of assignment quality",
    "key_strengths": ["Strength 1", "Strength 2"],
    "areas_for_improvement": ["Improvement Area 1", "Improvement Area 2"]
}`

const promptClosing = "Ensure the response is comprehensive, objective, and provides actionable insights."

// BuildPrompt interpolates the criteria and assignment text into the fixed
// evaluation template. Inputs are passed through untouched, whatever their length.
func BuildPrompt(assignmentText, criteriaText string) string {
	builder := strings.Builder{}
	builder.Grow(len(assignmentText) + len(criteriaText) + 1536)

	builder.WriteString(promptPreamble)
	builder.WriteString("\n\nEVALUATION CRITERIA:\n")
	builder.WriteString(criteriaText)
	builder.WriteString("\n\nASSIGNMENT CONTENT:\n")
	builder.WriteString(assignmentText)
	builder.WriteString("\n\n")
	builder.WriteString(promptInstructions)
	builder.WriteString("\n\n")
	builder.WriteString(promptSchema)
	builder.WriteString("\n\n")
	builder.WriteString(promptClosing)

	return builder.String()
}
