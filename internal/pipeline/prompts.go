package pipeline

import "fmt"

func analyzerPrompt(userInput string) string {
	return fmt.Sprintf(`Analyze the following input.
- Main intent
- Key keywords
- Emotional tone

Input: %s

Keep the analysis short.`, userInput)
}

func generatorPrompt(userInput, analysis string) string {
	return fmt.Sprintf(`Write a response based on the analysis.

Original input: %s

Analysis:
%s

Write a kind and helpful response.`, userInput, analysis)
}
